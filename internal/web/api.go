package web

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/sitesmith/sitesmith/internal/editor"
	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/ops"
)

// maxJSONBody bounds JSON request bodies. Thumbnails are the largest.
const maxJSONBody = 10 << 20

// publishResponse is the wire shape of POST /publish.
type publishResponse struct {
	Success  bool     `json:"success"`
	SiteURL  string   `json:"siteUrl,omitempty"`
	DeployID string   `json:"deployId,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// renderAPIError writes err as {"error": message, "code": code}.
func renderAPIError(w http.ResponseWriter, err error) {
	sErr := errors.As(err)
	if sErr.Code == errors.ErrInternal {
		log.Printf("[web] internal error: %v", err)
	}
	renderJSON(w, sErr.Status, map[string]string{
		"error": sErr.Message,
		"code":  string(sErr.Code),
	})
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return errors.NewValidation("failed to read request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidation("invalid JSON body")
	}
	return nil
}

// HandlePublish handles POST /publish and POST /api/publish.
func (h *Handlers) HandlePublish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SiteID string `json:"siteId"`
	}
	if err := decodeBody(r, &req); err != nil {
		renderJSON(w, http.StatusBadRequest, publishResponse{Error: errors.As(err).Message})
		return
	}
	if strings.TrimSpace(req.SiteID) == "" {
		renderJSON(w, http.StatusBadRequest, publishResponse{Error: "siteId is required"})
		return
	}

	// Publish what the editor shows, not the last autosave.
	if session, ok := h.Registry.Get(req.SiteID); ok && session.Dirty() {
		if _, err := session.Save(r.Context(), h.Registry.Store()); err != nil {
			sErr := errors.As(err)
			renderJSON(w, sErr.Status, publishResponse{Error: sErr.Message})
			return
		}
	}

	log.Printf("[publish] Starting for siteId: %s", req.SiteID)
	result, err := h.Pipeline.Run(r.Context(), req.SiteID)
	if err != nil {
		sErr := errors.As(err)
		renderJSON(w, sErr.Status, publishResponse{Error: sErr.Message})
		return
	}
	log.Printf("[publish] Success: %s", result.SiteURL)
	renderJSON(w, http.StatusOK, publishResponse{
		Success:  true,
		SiteURL:  result.SiteURL,
		DeployID: result.DeployID,
		Warnings: result.Warnings,
	})
}

// HandleThumbnailSave handles POST /api/thumbnail-save.
func (h *Handlers) HandleThumbnailSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TemplateID string `json:"templateId"`
		Base64     string `json:"base64"`
	}
	if err := decodeBody(r, &req); err != nil {
		renderAPIError(w, err)
		return
	}
	if req.TemplateID == "" || req.Base64 == "" {
		renderAPIError(w, errors.NewValidation("missing templateId or base64 data"))
		return
	}
	if _, err := h.Thumbnails.Save(req.TemplateID, req.Base64); err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleThumbnail handles GET and HEAD /assets/template-thumbnails/{id}.png.
func (h *Handlers) HandleThumbnail(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	id, ok := strings.CutSuffix(file, ".png")
	if !ok || !h.Thumbnails.Exists(id) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Not found"))
		return
	}
	path, _ := h.Thumbnails.Path(id)
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

// HandleTemplates handles GET /api/templates.
func (h *Handlers) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, ops.ListTemplates(h.Catalog))
}

// HandleOpenSession handles POST /api/sites/{id}/session.
func (h *Handlers) HandleOpenSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.Registry.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, h.Hub.View(session.State()))
}

// HandleOp handles POST /api/sites/{id}/ops: apply one edit op.
func (h *Handlers) HandleOp(w http.ResponseWriter, r *http.Request) {
	session, err := h.Registry.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		renderAPIError(w, err)
		return
	}

	var op editor.Op
	if err := decodeBody(r, &op); err != nil {
		renderAPIError(w, err)
		return
	}
	if err := session.Apply(op); err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, h.Hub.View(session.State()))
}

// HandleSave handles POST /api/sites/{id}/save.
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	session, ok := h.Registry.Get(id)
	if !ok {
		renderAPIError(w, errors.NewNotFound("editing session", id))
		return
	}

	saved, err := session.Save(r.Context(), h.Registry.Store())
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"saved":   saved,
		"pending": !saved,
		"dirty":   session.Dirty(),
	})
}

// HandleImageUpload handles POST /api/sites/{id}/images. The multipart form
// carries "image", "sectionId", the upload slot and optionally the field
// the resulting URL is written to.
func (h *Handlers) HandleImageUpload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImage+(1<<20))
	if err := r.ParseMultipartForm(h.maxImage + (1 << 20)); err != nil {
		renderAPIError(w, errors.NewValidation("image exceeds the maximum size of 5MB"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		renderAPIError(w, errors.NewValidation("image file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxImage+1))
	if err != nil {
		renderAPIError(w, errors.NewValidation("failed to read image"))
		return
	}

	// Some clients send every file as octet-stream; sniff those instead.
	contentType := header.Header.Get("Content-Type")
	if contentType == "application/octet-stream" {
		contentType = ""
	}

	sectionID := r.FormValue("sectionId")
	out, err := ops.UploadImage(r.Context(), h.Uploader, h.timeout, ops.UploadInput{
		SiteID:      id,
		SectionID:   sectionID,
		Filename:    header.Filename,
		ContentType: contentType,
		Slot:        r.FormValue("slot"),
		Data:        data,
	})
	if err != nil {
		renderAPIError(w, err)
		return
	}

	resp := map[string]any{"upload": out}
	if field := r.FormValue("field"); field != "" {
		session, err := h.Registry.Open(r.Context(), id)
		if err != nil {
			renderAPIError(w, err)
			return
		}
		if err := session.UpdateField(sectionID, field, out.URL); err != nil {
			renderAPIError(w, err)
			return
		}
		resp["view"] = h.Hub.View(session.State())
	}
	renderJSON(w, http.StatusOK, resp)
}

// HandleWebSocket handles GET /ws/sites/{id}.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	session, err := h.Registry.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		renderAPIError(w, err)
		return
	}
	h.Hub.Serve(w, r, session)
}
