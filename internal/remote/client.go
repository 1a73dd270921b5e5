// Package remote implements the HTTP client for the project authority:
// projects, media metadata, and per-scene timelines. The binary asset
// blobs stay on the server side; only their URLs pass through here.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/voss/atelier/internal/apperr"
	"github.com/voss/atelier/internal/models"
)

// UploadRequest carries the metadata and blob for one media upload.
// The remote treats metadata plus blob as a single atomic write.
type UploadRequest struct {
	ID        string
	ProjectID string
	Name      string
	Type      models.MediaType
	Width     int
	Height    int
	Duration  float64
	Ephemeral bool
	Filename  string
	File      io.Reader
}

// Client talks to the remote entity API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the API at baseURL. token may be
// empty when the server runs without authentication.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type projectResponse struct {
	Success bool                  `json:"success"`
	Project *models.ProjectRecord `json:"project"`
}

type projectListResponse struct {
	Success  bool                   `json:"success"`
	Projects []models.ProjectRecord `json:"projects"`
}

type mediaListResponse struct {
	Success bool           `json:"success"`
	Media   []models.Media `json:"media"`
}

type mediaResponse struct {
	Success bool          `json:"success"`
	Media   *models.Media `json:"media"`
}

type timelineResponse struct {
	Success   bool           `json:"success"`
	Tracks    []models.Track `json:"tracks"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// GetProject fetches one project record. Absent ids surface as
// apperr.ErrNotFound.
func (c *Client) GetProject(ctx context.Context, id string) (*models.ProjectRecord, error) {
	var resp projectResponse
	if err := c.doJSON(ctx, http.MethodGet, "/projects/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Project, nil
}

// CreateProject creates a new project.
func (c *Client) CreateProject(ctx context.Context, rec *models.ProjectRecord) error {
	return c.doJSON(ctx, http.MethodPost, "/projects", rec, nil)
}

// UpdateProject updates an existing project.
func (c *Client) UpdateProject(ctx context.Context, rec *models.ProjectRecord) error {
	return c.doJSON(ctx, http.MethodPut, "/projects/"+url.PathEscape(rec.ID), rec, nil)
}

// DeleteProject deletes a project. A 404 is tolerated as success, so
// the operation is idempotent.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	err := c.doJSON(ctx, http.MethodDelete, "/projects/"+url.PathEscape(id), nil, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

// ListProjects returns every project record.
func (c *Client) ListProjects(ctx context.Context) ([]models.ProjectRecord, error) {
	var resp projectListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/projects", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

// ListMedia returns the media metadata records for a project.
func (c *Client) ListMedia(ctx context.Context, projectID string) ([]models.Media, error) {
	var resp mediaListResponse
	path := "/media?projectId=" + url.QueryEscape(projectID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Media, nil
}

// UploadMedia sends the blob and its metadata as one multipart request.
func (c *Client) UploadMedia(ctx context.Context, req UploadRequest) (*models.Media, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"id":        req.ID,
		"projectId": req.ProjectID,
		"name":      req.Name,
		"type":      string(req.Type),
	}
	if req.Width > 0 {
		fields["width"] = strconv.Itoa(req.Width)
	}
	if req.Height > 0 {
		fields["height"] = strconv.Itoa(req.Height)
	}
	if req.Duration > 0 {
		fields["duration"] = strconv.FormatFloat(req.Duration, 'f', -1, 64)
	}
	if req.Ephemeral {
		fields["ephemeral"] = "true"
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("remote: write field %s: %w", k, err)
		}
	}

	part, err := mw.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("remote: create form file: %w", err)
	}
	if _, err := io.Copy(part, req.File); err != nil {
		return nil, fmt.Errorf("remote: copy blob: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("remote: close multipart: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/media/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("remote: build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(httpReq)

	var resp mediaResponse
	if err := c.send(httpReq, &resp); err != nil {
		return nil, err
	}
	return resp.Media, nil
}

// DeleteMedia deletes one media record. A 404 is tolerated as success.
func (c *Client) DeleteMedia(ctx context.Context, id string) error {
	err := c.doJSON(ctx, http.MethodDelete, "/media/"+url.PathEscape(id), nil, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

// GetTimeline fetches the full track collection for a scene. A 404
// surfaces as apperr.ErrNotFound: the caller decides whether absence
// is an error or simply "no timeline yet".
func (c *Client) GetTimeline(ctx context.Context, sceneID string) (*models.Timeline, error) {
	var resp timelineResponse
	path := "/timelines?sceneId=" + url.QueryEscape(sceneID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &models.Timeline{SceneID: sceneID, Tracks: resp.Tracks, UpdatedAt: resp.UpdatedAt}, nil
}

// PutTimeline upserts the whole track collection for a scene and
// returns the authoritative state the server stored.
func (c *Client) PutTimeline(ctx context.Context, tl *models.Timeline) (*models.Timeline, error) {
	body := map[string]any{"sceneId": tl.SceneID, "tracks": tl.Tracks}
	var resp timelineResponse
	if err := c.doJSON(ctx, http.MethodPut, "/timelines", body, &resp); err != nil {
		return nil, err
	}
	return &models.Timeline{SceneID: tl.SceneID, Tracks: resp.Tracks, UpdatedAt: resp.UpdatedAt}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("remote: %s %s: %w", req.Method, req.URL.Path, apperr.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("remote: %s %s: %s", req.Method, req.URL.Path, resp.Status)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}
