// Package coordinator unifies remote and cached access per entity
// kind: projects go straight to the remote authority, media lists and
// timelines are served cache-aside from the local TTL caches.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voss/atelier/internal/apperr"
	"github.com/voss/atelier/internal/events"
	"github.com/voss/atelier/internal/kvstore"
	"github.com/voss/atelier/internal/models"
	"github.com/voss/atelier/internal/projectstore"
	"github.com/voss/atelier/internal/remote"
	"github.com/voss/atelier/internal/ttlcache"
)

// Cache partitions in the local key-value store.
const (
	MediaPartition    = "media"
	TimelinePartition = "timelines"
)

// Default TTLs. Timelines are actively edited and must not serve
// stale data for long.
const (
	DefaultMediaTTL    = 5 * time.Minute
	DefaultTimelineTTL = time.Minute
)

// Coordinator is the storage facade. Construct one instance at process
// start and pass it by reference; it holds no package-level state.
type Coordinator struct {
	api       remote.API
	projects  *projectstore.Store
	mediaList *ttlcache.Cache[[]models.Media]
	timelines *ttlcache.Cache[models.Timeline]
	logger    *slog.Logger
	bus       *events.Bus
}

// New creates a coordinator over the given remote API and local store.
// Zero TTLs fall back to the defaults; bus may be nil.
func New(api remote.API, store kvstore.Store, mediaTTL, timelineTTL time.Duration, logger *slog.Logger, bus *events.Bus) *Coordinator {
	if mediaTTL <= 0 {
		mediaTTL = DefaultMediaTTL
	}
	if timelineTTL <= 0 {
		timelineTTL = DefaultTimelineTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		api:       api,
		projects:  projectstore.New(api),
		mediaList: ttlcache.New[[]models.Media](store, MediaPartition, mediaTTL, logger),
		timelines: ttlcache.New[models.Timeline](store, TimelinePartition, timelineTTL, logger),
		logger:    logger,
		bus:       bus,
	}
}

// --- Projects -----------------------------------------------------------
//
// Project metadata is small and edited rarely, so it is never cached:
// every read and write goes to the remote authority.

// SaveProject validates the project and upserts it remotely.
func (c *Coordinator) SaveProject(ctx context.Context, p *models.Project) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("coordinator: save project: %w", err)
	}
	if err := c.projects.Set(ctx, p.ToRecord()); err != nil {
		return err
	}
	c.bus.Publish(events.Event{Type: events.ProjectSaved, EntityID: p.ID})
	return nil
}

// LoadProject fetches a project. An absent id yields (nil, nil):
// not-found is an expected result, not an error.
func (c *Coordinator) LoadProject(ctx context.Context, id string) (*models.Project, error) {
	rec, err := c.projects.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return models.ProjectFromRecord(rec)
}

// DeleteProject removes a project remotely (idempotent) and drops the
// project's cached media list and its scenes' cached timelines.
func (c *Coordinator) DeleteProject(ctx context.Context, id string) error {
	// Best-effort lookup so the scenes' timeline entries can be dropped
	// too; an already-absent project still gets its caches cleaned.
	if rec, err := c.projects.Get(ctx, id); err == nil {
		for _, sc := range rec.Scenes {
			c.timelines.Invalidate(ctx, sc.ID)
		}
	}
	if err := c.projects.Remove(ctx, id); err != nil {
		return err
	}
	c.mediaList.Invalidate(ctx, id)
	c.bus.Publish(events.Event{Type: events.ProjectDeleted, EntityID: id})
	return nil
}

// ListProjects returns every project id known to the remote.
func (c *Coordinator) ListProjects(ctx context.Context) ([]string, error) {
	return c.projects.List(ctx)
}

// LoadAllProjects returns every project in domain shape.
func (c *Coordinator) LoadAllProjects(ctx context.Context) ([]*models.Project, error) {
	recs, err := c.projects.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Project, len(recs))
	for i := range recs {
		p, err := models.ProjectFromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// DeleteScene removes a scene from the caller's in-memory project and
// saves the result. Main scenes are rejected before any remote call.
// If the deleted scene was current, the main scene becomes current.
func (c *Coordinator) DeleteScene(ctx context.Context, p *models.Project, sceneID string) error {
	sc := p.Scene(sceneID)
	if sc == nil {
		return fmt.Errorf("coordinator: delete scene %s: %w", sceneID, apperr.ErrNotFound)
	}
	if sc.IsMain {
		return fmt.Errorf("coordinator: delete scene %s: %w", sceneID, apperr.ErrMainScene)
	}

	p.RemoveScene(sceneID)
	if p.CurrentSceneID == sceneID {
		if main := p.MainScene(); main != nil {
			p.CurrentSceneID = main.ID
		} else {
			p.CurrentSceneID = ""
		}
	}
	if err := c.SaveProject(ctx, p); err != nil {
		return err
	}

	// The server cascades the timeline delete; only the local cache
	// entry needs dropping.
	c.DeleteTimeline(ctx, sceneID)
	c.bus.Publish(events.Event{Type: events.SceneDeleted, EntityID: sceneID, ProjectID: p.ID})
	return nil
}

// --- Media --------------------------------------------------------------

// LoadMedia returns the media list for a project, cache-aside. An
// empty remote result is deliberately not cached so a fresh upload is
// never masked behind a stale "empty" entry.
func (c *Coordinator) LoadMedia(ctx context.Context, projectID string) ([]models.Media, error) {
	if list, ok := c.mediaList.Get(ctx, projectID); ok {
		return list, nil
	}
	list, err := c.api.ListMedia(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(list) > 0 {
		c.mediaList.Set(ctx, projectID, list)
	}
	return list, nil
}

// UploadMedia performs the atomic remote upload, then invalidates the
// project's cached media list so the next read refetches. Correctness
// over latency: the cache is never patched in place.
func (c *Coordinator) UploadMedia(ctx context.Context, req remote.UploadRequest) (*models.Media, error) {
	media, err := c.api.UploadMedia(ctx, req)
	if err != nil {
		return nil, err
	}
	c.mediaList.Invalidate(ctx, req.ProjectID)
	c.bus.Publish(events.Event{Type: events.MediaAdded, EntityID: media.ID, ProjectID: req.ProjectID})
	return media, nil
}

// DeleteMedia deletes one asset remotely (absent-on-delete tolerated)
// and invalidates the project's cached media list.
func (c *Coordinator) DeleteMedia(ctx context.Context, projectID, mediaID string) error {
	if err := c.api.DeleteMedia(ctx, mediaID); err != nil {
		return err
	}
	c.mediaList.Invalidate(ctx, projectID)
	c.bus.Publish(events.Event{Type: events.MediaDeleted, EntityID: mediaID, ProjectID: projectID})
	return nil
}

// DeleteOutcome is the per-item result of a bulk media delete.
type DeleteOutcome struct {
	MediaID string
	Err     error
}

// BulkDeleteResult aggregates the outcomes of a fan-out delete.
type BulkDeleteResult struct {
	Items []DeleteOutcome
}

// Failed returns the outcomes that carry an error.
func (r BulkDeleteResult) Failed() []DeleteOutcome {
	var out []DeleteOutcome
	for _, it := range r.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Err joins every per-item error, or nil when all succeeded.
func (r BulkDeleteResult) Err() error {
	var errs []error
	for _, it := range r.Items {
		if it.Err != nil {
			errs = append(errs, fmt.Errorf("media %s: %w", it.MediaID, it.Err))
		}
	}
	return errors.Join(errs...)
}

// DeleteProjectMedia deletes every asset of a project through the
// single-delete path, fanned out concurrently. One failure does not
// roll back the others; the result carries each item's outcome. The
// cache is invalidated once at the end regardless of outcome.
func (c *Coordinator) DeleteProjectMedia(ctx context.Context, projectID string) (BulkDeleteResult, error) {
	list, err := c.LoadMedia(ctx, projectID)
	if err != nil {
		return BulkDeleteResult{}, fmt.Errorf("coordinator: delete project media: %w", err)
	}
	defer c.mediaList.Invalidate(ctx, projectID)

	result := BulkDeleteResult{Items: make([]DeleteOutcome, len(list))}
	var g errgroup.Group
	for i, m := range list {
		i, m := i, m
		g.Go(func() error {
			result.Items[i] = DeleteOutcome{MediaID: m.ID, Err: c.api.DeleteMedia(ctx, m.ID)}
			return nil
		})
	}
	_ = g.Wait()

	for _, it := range result.Items {
		if it.Err == nil {
			c.bus.Publish(events.Event{Type: events.MediaDeleted, EntityID: it.MediaID, ProjectID: projectID})
		}
	}
	return result, nil
}

// --- Timelines ----------------------------------------------------------

// SaveTimeline upserts the whole track collection and refreshes (not
// invalidates) the cache: the caller already holds the authoritative
// new state, so a cache update avoids an immediate refetch.
func (c *Coordinator) SaveTimeline(ctx context.Context, tl *models.Timeline) (*models.Timeline, error) {
	saved, err := c.api.PutTimeline(ctx, tl)
	if err != nil {
		return nil, err
	}
	c.timelines.Set(ctx, saved.SceneID, *saved)
	c.bus.Publish(events.Event{Type: events.TimelineSaved, EntityID: saved.SceneID})
	return saved, nil
}

// LoadTimeline returns the timeline for a scene, cache-aside. A scene
// without a timeline yet yields (nil, nil). Empty track collections
// are not cached, same rationale as media.
func (c *Coordinator) LoadTimeline(ctx context.Context, sceneID string) (*models.Timeline, error) {
	if tl, ok := c.timelines.Get(ctx, sceneID); ok {
		return &tl, nil
	}
	tl, err := c.api.GetTimeline(ctx, sceneID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(tl.Tracks) > 0 {
		c.timelines.Set(ctx, sceneID, *tl)
	}
	return tl, nil
}

// DeleteTimeline drops the local cache entry only. The remote deletion
// cascades server-side from scene deletion and is not issued here.
func (c *Coordinator) DeleteTimeline(ctx context.Context, sceneID string) {
	c.timelines.Invalidate(ctx, sceneID)
	c.bus.Publish(events.Event{Type: events.TimelineDropped, EntityID: sceneID})
}

// --- Reset --------------------------------------------------------------

// ClearAllData clears the remote project store and both local caches.
// It is a full local reset; remote media and timelines are left to the
// server-side cascades of the project deletes.
func (c *Coordinator) ClearAllData(ctx context.Context) error {
	if err := c.projects.Clear(ctx); err != nil {
		return err
	}
	c.mediaList.Clear(ctx)
	c.timelines.Clear(ctx)
	c.bus.Publish(events.Event{Type: events.StorageCleared})
	return nil
}
