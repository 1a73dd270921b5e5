package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voss/atelier/internal/models"
)

// FakeRemote is an in-memory implementation of the remote entity API,
// served over a chi router. Tests assert on per-operation call counts
// to verify cache-aside behavior.
type FakeRemote struct {
	mu        sync.Mutex
	projects  map[string]models.ProjectRecord
	media     map[string]models.Media
	timelines map[string]models.Timeline
	calls     map[string]int

	// FailUpload makes POST /media/upload answer 500.
	FailUpload bool
	// FailMediaDelete makes DELETE /media/{id} answer 500 for listed ids.
	FailMediaDelete map[string]bool
}

// NewFakeRemote creates an empty fake.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		projects:        make(map[string]models.ProjectRecord),
		media:           make(map[string]models.Media),
		timelines:       make(map[string]models.Timeline),
		calls:           make(map[string]int),
		FailMediaDelete: make(map[string]bool),
	}
}

// Server starts an httptest server for the fake, closed on cleanup.
func (f *FakeRemote) Server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f.Router())
	t.Cleanup(srv.Close)
	return srv
}

// Calls returns how often the named operation was hit.
func (f *FakeRemote) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// SeedMedia inserts media records directly, bypassing the upload path.
func (f *FakeRemote) SeedMedia(items ...models.Media) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range items {
		f.media[m.ID] = m
	}
}

// SeedTimeline inserts a timeline directly.
func (f *FakeRemote) SeedTimeline(tl models.Timeline) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timelines[tl.SceneID] = tl
}

// HasMedia reports whether a media id exists server-side.
func (f *FakeRemote) HasMedia(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.media[id]
	return ok
}

// Timeline returns the stored timeline for a scene, if any.
func (f *FakeRemote) Timeline(sceneID string) (models.Timeline, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tl, ok := f.timelines[sceneID]
	return tl, ok
}

func (f *FakeRemote) count(op string) {
	f.calls[op]++
}

// Router builds the chi router implementing the remote API contract.
func (f *FakeRemote) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/projects", f.listProjects)
	r.Post("/projects", f.createProject)
	r.Get("/projects/{id}", f.getProject)
	r.Put("/projects/{id}", f.updateProject)
	r.Delete("/projects/{id}", f.deleteProject)

	r.Get("/media", f.listMedia)
	r.Post("/media/upload", f.uploadMedia)
	r.Delete("/media/{id}", f.deleteMedia)

	r.Get("/timelines", f.getTimeline)
	r.Put("/timelines", f.putTimeline)

	return r
}

func (f *FakeRemote) getProject(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("getProject")

	rec, ok := f.projects[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "project": rec})
}

func (f *FakeRemote) createProject(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("createProject")

	var rec models.ProjectRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "bad body"})
		return
	}
	if _, exists := f.projects[rec.ID]; exists {
		writeJSON(w, http.StatusConflict, map[string]any{"success": false, "error": "duplicate"})
		return
	}
	f.projects[rec.ID] = rec
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "project": rec})
}

func (f *FakeRemote) updateProject(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("updateProject")

	id := chi.URLParam(r, "id")
	if _, ok := f.projects[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "not found"})
		return
	}
	var rec models.ProjectRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "bad body"})
		return
	}
	rec.ID = id
	f.projects[id] = rec
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "project": rec})
}

func (f *FakeRemote) deleteProject(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("deleteProject")

	id := chi.URLParam(r, "id")
	if _, ok := f.projects[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "not found"})
		return
	}
	delete(f.projects, id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (f *FakeRemote) listProjects(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("listProjects")

	out := make([]models.ProjectRecord, 0, len(f.projects))
	for _, rec := range f.projects {
		out = append(out, rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "projects": out})
}

func (f *FakeRemote) listMedia(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("listMedia")

	projectID := r.URL.Query().Get("projectId")
	out := make([]models.Media, 0)
	for _, m := range f.media {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "media": out})
}

func (f *FakeRemote) uploadMedia(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("uploadMedia")

	if f.FailUpload {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "storage down"})
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "bad multipart"})
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "file field required"})
		return
	}
	defer file.Close()
	blob, _ := io.ReadAll(file)

	width, _ := strconv.Atoi(r.FormValue("width"))
	height, _ := strconv.Atoi(r.FormValue("height"))
	duration, _ := strconv.ParseFloat(r.FormValue("duration"), 64)

	m := models.Media{
		ID:           r.FormValue("id"),
		ProjectID:    r.FormValue("projectId"),
		Name:         r.FormValue("name"),
		Type:         models.MediaType(r.FormValue("type")),
		URL:          "/assets/" + r.FormValue("id"),
		Size:         int64(len(blob)),
		LastModified: time.Now().UTC(),
		Width:        width,
		Height:       height,
		Duration:     duration,
		Ephemeral:    r.FormValue("ephemeral") == "true",
	}
	f.media[m.ID] = m
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "media": m})
}

func (f *FakeRemote) deleteMedia(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("deleteMedia")

	id := chi.URLParam(r, "id")
	if f.FailMediaDelete[id] {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "boom"})
		return
	}
	if _, ok := f.media[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "not found"})
		return
	}
	delete(f.media, id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (f *FakeRemote) getTimeline(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("getTimeline")

	tl, ok := f.timelines[r.URL.Query().Get("sceneId")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tracks": tl.Tracks, "updatedAt": tl.UpdatedAt})
}

func (f *FakeRemote) putTimeline(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("putTimeline")

	var req struct {
		SceneID string         `json:"sceneId"`
		Tracks  []models.Track `json:"tracks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SceneID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "sceneId required"})
		return
	}
	tl := models.Timeline{SceneID: req.SceneID, Tracks: req.Tracks, UpdatedAt: time.Now().UTC()}
	f.timelines[req.SceneID] = tl
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tracks": tl.Tracks, "updatedAt": tl.UpdatedAt})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
