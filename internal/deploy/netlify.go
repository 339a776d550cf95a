package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/sitesmith/sitesmith/internal/errors"
)

// DefaultNetlifyAPI is the Netlify REST endpoint.
const DefaultNetlifyAPI = "https://api.netlify.com/api/v1"

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// Netlify deploys through the Netlify sites and deploys API.
type Netlify struct {
	apiURL string
	token  string
	client *http.Client
}

// NewNetlify returns a Netlify client. An empty apiURL uses
// DefaultNetlifyAPI; a nil client uses http.DefaultClient. Call deadlines
// come from the request context.
func NewNetlify(apiURL, token string, client *http.Client) *Netlify {
	if apiURL == "" {
		apiURL = DefaultNetlifyAPI
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Netlify{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		client: client,
	}
}

type netlifySite struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AdminURL  string `json:"admin_url"`
	SSLURL    string `json:"ssl_url"`
	URL       string `json:"url"`
	Subdomain string `json:"subdomain"`
}

type netlifyDeploy struct {
	ID     string `json:"id"`
	SSLURL string `json:"ssl_url"`
	URL    string `json:"url"`
}

// CreateSite creates a Netlify site named name.
func (n *Netlify) CreateSite(ctx context.Context, name string) (Site, error) {
	if n.token == "" {
		return Site{}, errors.NewValidation("NETLIFY_AUTH_TOKEN not set, deployment will fail")
	}
	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return Site{}, err
	}

	log.Printf("[deploy] Creating Netlify site: %s", name)
	var site netlifySite
	if err := n.do(ctx, "/sites", "application/json", body, "create Netlify site", &site); err != nil {
		return Site{}, err
	}
	if site.ID == "" {
		return Site{}, errors.NewDeploy("create Netlify site", http.StatusOK, "response has no site id")
	}

	siteURL := firstNonEmpty(site.SSLURL, site.URL)
	if siteURL == "" && site.Subdomain != "" {
		siteURL = "https://" + site.Subdomain + ".netlify.app"
	}
	log.Printf("[deploy] Site created with ID: %s", site.ID)
	return Site{ID: site.ID, Name: firstNonEmpty(site.Name, name), AdminURL: site.AdminURL, URL: siteURL}, nil
}

// Deploy uploads a ZIP archive as a new deploy of siteID.
func (n *Netlify) Deploy(ctx context.Context, siteID string, archive []byte) (Deployment, error) {
	if n.token == "" {
		return Deployment{}, errors.NewValidation("NETLIFY_AUTH_TOKEN not set, deployment will fail")
	}

	var dep netlifyDeploy
	path := "/sites/" + url.PathEscape(siteID) + "/deploys"
	if err := n.do(ctx, path, "application/zip", archive, "Netlify deployment", &dep); err != nil {
		return Deployment{}, err
	}
	return Deployment{ID: dep.ID, URL: firstNonEmpty(dep.SSLURL, dep.URL)}, nil
}

func (n *Netlify) do(ctx context.Context, path, contentType string, body []byte, op string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Content-Type", contentType)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.NewDeploy(op, resp.StatusCode, strings.TrimSpace(string(text)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewDeploy(op, resp.StatusCode, "unreadable response: "+err.Error())
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
