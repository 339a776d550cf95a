package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sitesmith/sitesmith/internal/ops"
)

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// --- HandlePublish ---

func TestHandlePublish_Success(t *testing.T) {
	env := setupTest(t)
	id := seedSite(t, env, "Launch Party", heroPages)

	rec := env.do(postJSON("/publish", `{"siteId":"`+id+`"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	resp := decodeJSON[publishResponse](t, rec)
	if !resp.Success || resp.SiteURL == "" || resp.DeployID == "" {
		t.Errorf("response = %+v", resp)
	}
	if !strings.HasPrefix(resp.SiteURL, "http://localhost:4003/deploys/launch-party-") {
		t.Errorf("SiteURL = %q", resp.SiteURL)
	}

	site, err := env.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if site.PublishedURL == nil || *site.PublishedURL != resp.SiteURL {
		t.Errorf("stored published URL = %v, want %q", site.PublishedURL, resp.SiteURL)
	}
}

func TestHandlePublish_SavesDirtySessionFirst(t *testing.T) {
	env := setupTest(t)
	id := seedSite(t, env, "Fresh", heroPages)
	session, err := env.h.Registry.Open(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if err := session.UpdateField("hero-1", "title", "Edited Before Publish"); err != nil {
		t.Fatal(err)
	}

	rec := env.do(postJSON("/api/publish", `{"siteId":"`+id+`"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if session.Dirty() {
		t.Error("session should be clean after publish")
	}

	site, _ := env.store.GetByID(context.Background(), id)
	if !strings.Contains(site.Pages, "Edited Before Publish") {
		t.Error("stored pages should contain the unsaved edit")
	}
}

func TestHandlePublish_Validation(t *testing.T) {
	tests := []struct {
		name, body, wantErr string
		wantStatus          int
	}{
		{"missing siteId", `{}`, "siteId is required", http.StatusBadRequest},
		{"blank siteId", `{"siteId":"  "}`, "siteId is required", http.StatusBadRequest},
		{"bad json", `{`, "invalid JSON body", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := setupTest(t)
			rec := env.do(postJSON("/publish", tc.body))
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			resp := decodeJSON[publishResponse](t, rec)
			if resp.Success || resp.Error != tc.wantErr {
				t.Errorf("response = %+v, want error %q", resp, tc.wantErr)
			}
		})
	}
}

func TestHandlePublish_UnknownSite(t *testing.T) {
	env := setupTest(t)
	rec := env.do(postJSON("/publish", `{"siteId":"missing"}`))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp := decodeJSON[publishResponse](t, rec); resp.Success || resp.Error == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandlePublish_RateLimited(t *testing.T) {
	env := setupTest(t)
	// PublishRatePerMinute is 3 in setupTest.
	for i := 0; i < 3; i++ {
		if rec := env.do(postJSON("/publish", `{}`)); rec.Code != http.StatusBadRequest {
			t.Fatalf("request %d status = %d, want 400", i, rec.Code)
		}
	}

	rec := env.do(postJSON("/publish", `{}`))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	other := postJSON("/publish", `{}`)
	other.RemoteAddr = "198.51.100.7:5555"
	if rec := env.do(other); rec.Code == http.StatusTooManyRequests {
		t.Error("another client should have its own bucket")
	}
}

// --- thumbnails and templates ---

const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

func TestThumbnailSaveAndServe(t *testing.T) {
	env := setupTest(t)

	rec := env.do(postJSON("/api/thumbnail-save", `{"templateId":"landing","base64":"data:image/png;base64,`+onePixelPNG+`"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeJSON[map[string]bool](t, rec); !got["success"] {
		t.Errorf("save response = %v", got)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.ThumbnailDir, "landing.png")); err != nil {
		t.Errorf("thumbnail not written: %v", err)
	}

	rec = env.do(httptest.NewRequest("GET", "/assets/template-thumbnails/landing.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}
}

func TestThumbnailSave_Rejects(t *testing.T) {
	env := setupTest(t)
	for _, body := range []string{
		`{"templateId":"landing"}`,
		`{"base64":"` + onePixelPNG + `"}`,
		`{"templateId":"../escape","base64":"` + onePixelPNG + `"}`,
	} {
		rec := env.do(postJSON("/api/thumbnail-save", body))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestThumbnailSave_HeadProbe(t *testing.T) {
	env := setupTest(t)
	rec := env.do(httptest.NewRequest("HEAD", "/api/thumbnail-save", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestThumbnail_NotFound(t *testing.T) {
	env := setupTest(t)
	for _, path := range []string{"/assets/template-thumbnails/portfolio.png", "/assets/template-thumbnails/landing.jpg"} {
		rec := env.do(httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rec.Code)
		}
		if rec.Body.String() != "Not found" {
			t.Errorf("%s: body = %q", path, rec.Body.String())
		}
	}
}

func TestHandleTemplates(t *testing.T) {
	env := setupTest(t)
	rec := env.do(httptest.NewRequest("GET", "/api/templates", nil))

	out := decodeJSON[ops.TemplatesOutput](t, rec)
	if len(out.Templates) != 3 {
		t.Fatalf("templates = %d, want 3", len(out.Templates))
	}
	if out.Templates[0].ID != "landing" {
		t.Errorf("first template = %q, want landing", out.Templates[0].ID)
	}
	if len(out.Themes) == 0 {
		t.Error("themes should not be empty")
	}
}

// --- session API ---

func TestSessionOpsAndSave(t *testing.T) {
	env := setupTest(t)
	id := seedSite(t, env, "Session", heroPages)

	rec := env.do(postJSON("/api/sites/"+id+"/session", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("open status = %d: %s", rec.Code, rec.Body.String())
	}
	view := decodeJSON[EditorView](t, rec)
	if view.Page != "home" || view.Dirty || view.CanUndo {
		t.Errorf("initial view = %+v", view)
	}
	if !strings.Contains(view.Canvas, "Hello World") {
		t.Error("canvas should render the home page")
	}

	rec = env.do(postJSON("/api/sites/"+id+"/ops", `{"op":"addSection","type":"pricing"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("op status = %d: %s", rec.Code, rec.Body.String())
	}
	view = decodeJSON[EditorView](t, rec)
	if !view.Dirty || !view.CanUndo {
		t.Errorf("after add: %+v", view)
	}
	if !strings.Contains(view.Canvas, "pricing-section") {
		t.Error("canvas should include the new pricing section")
	}

	rec = env.do(postJSON("/api/sites/"+id+"/ops", `{"op":"undo"}`))
	view = decodeJSON[EditorView](t, rec)
	if !view.CanRedo {
		t.Errorf("after undo: %+v", view)
	}

	rec = env.do(postJSON("/api/sites/"+id+"/ops", `{"op":"addPage","name":"Contact Us"}`))
	view = decodeJSON[EditorView](t, rec)
	if view.Page != "contact-us" || len(view.Pages) != 3 {
		t.Errorf("after addPage: page=%q pages=%v", view.Page, view.Pages)
	}

	rec = env.do(postJSON("/api/sites/"+id+"/save", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}
	saved := decodeJSON[map[string]any](t, rec)
	if saved["saved"] != true || saved["dirty"] != false {
		t.Errorf("save response = %v", saved)
	}

	site, _ := env.store.GetByID(context.Background(), id)
	if !strings.Contains(site.Pages, "contact-us") {
		t.Error("saved pages should include the new page")
	}
}

func TestHandleOp_Errors(t *testing.T) {
	env := setupTest(t)
	id := seedSite(t, env, "Errors", heroPages)

	tests := []struct {
		name, path, body string
		wantStatus       int
		wantCode         string
	}{
		{"unknown op", "/api/sites/" + id + "/ops", `{"op":"explode"}`, http.StatusBadRequest, "VALIDATION"},
		{"unknown section type", "/api/sites/" + id + "/ops", `{"op":"addSection","type":"carousel"}`, http.StatusBadRequest, "VALIDATION"},
		{"missing path", "/api/sites/" + id + "/ops", `{"op":"updateField","id":"hero-1"}`, http.StatusBadRequest, "VALIDATION"},
		{"unknown theme", "/api/sites/" + id + "/ops", `{"op":"applyTheme","theme":"neon"}`, http.StatusNotFound, "NOT_FOUND"},
		{"unknown site", "/api/sites/missing/ops", `{"op":"undo"}`, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(postJSON(tc.path, tc.body))
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if got := decodeJSON[map[string]string](t, rec); got["code"] != tc.wantCode {
				t.Errorf("code = %q, want %q", got["code"], tc.wantCode)
			}
		})
	}
}

func TestHandleSave_NoSession(t *testing.T) {
	env := setupTest(t)
	id := seedSite(t, env, "Closed", heroPages)

	rec := env.do(postJSON("/api/sites/"+id+"/save", ""))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// --- image upload ---

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartUpload(t *testing.T, path string, fields map[string]string, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		fw, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleImageUpload(t *testing.T) {
	env := setupTest(t)
	id := seedSite(t, env, "Gallery", heroPages)

	req := multipartUpload(t, "/api/sites/"+id+"/images", map[string]string{
		"sectionId": "hero-1",
		"slot":      "hero",
		"field":     "imageUrl",
	}, "beach photo.png", "image/png", testPNG(t, 1000, 500))
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Upload ops.UploadOutput `json:"upload"`
		View   *EditorView      `json:"view"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.Upload.URL, "/uploads/") {
		t.Errorf("URL = %q", resp.Upload.URL)
	}
	if resp.View == nil || !resp.View.Dirty {
		t.Fatalf("view = %+v, want a dirty view", resp.View)
	}
	if !strings.Contains(resp.View.Canvas, resp.Upload.URL) {
		t.Error("canvas should reference the uploaded image")
	}

	// The uploaded object is served back.
	rec = env.do(httptest.NewRequest("GET", resp.Upload.URL, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("serving upload status = %d", rec.Code)
	}
}

func TestHandleImageUpload_Rejects(t *testing.T) {
	env := setupTest(t)
	id := seedSite(t, env, "Rejects", heroPages)

	tests := []struct {
		name   string
		fields map[string]string
		file   string
		ct     string
		data   []byte
	}{
		{"no file", map[string]string{"sectionId": "hero-1"}, "", "", nil},
		{"no section", map[string]string{}, "a.png", "image/png", testPNG(t, 1000, 500)},
		{"not an image", map[string]string{"sectionId": "hero-1"}, "notes.txt", "text/plain", []byte("plain text")},
		{"too small", map[string]string{"sectionId": "hero-1", "slot": "hero"}, "tiny.png", "image/png", testPNG(t, 40, 30)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(multipartUpload(t, "/api/sites/"+id+"/images", tc.fields, tc.file, tc.ct, tc.data))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}
