// Package media owns the session's media lifecycle: uploads, deletes,
// and the cascade that strips timeline elements referencing a deleted
// asset.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voss/atelier/internal/models"
	"github.com/voss/atelier/internal/remote"
)

// Storage is the slice of the storage coordinator the controller
// depends on.
type Storage interface {
	LoadMedia(ctx context.Context, projectID string) ([]models.Media, error)
	UploadMedia(ctx context.Context, req remote.UploadRequest) (*models.Media, error)
	DeleteMedia(ctx context.Context, projectID, mediaID string) error
	LoadTimeline(ctx context.Context, sceneID string) (*models.Timeline, error)
	SaveTimeline(ctx context.Context, tl *models.Timeline) (*models.Timeline, error)
}

// Controller holds the in-memory media list for one editing session.
type Controller struct {
	store  Storage
	logger *slog.Logger

	mu     sync.Mutex
	assets []models.Media
}

// NewController creates a controller over the given storage.
func NewController(store Storage, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{store: store, logger: logger}
}

// Load replaces the in-memory list with the project's media.
func (c *Controller) Load(ctx context.Context, projectID string) error {
	list, err := c.store.LoadMedia(ctx, projectID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.assets = list
	c.mu.Unlock()
	return nil
}

// Assets returns a snapshot of the in-memory media list.
func (c *Controller) Assets() []models.Media {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Media, len(c.assets))
	copy(out, c.assets)
	return out
}

// Asset returns the in-memory record for id, if present.
func (c *Controller) Asset(id string) (models.Media, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.assets {
		if m.ID == id {
			return m, true
		}
	}
	return models.Media{}, false
}

// Add uploads a new asset. The list is updated optimistically with a
// placeholder so the UI shows the item immediately; if the upload
// fails, the placeholder is rolled back by removal.
func (c *Controller) Add(ctx context.Context, req remote.UploadRequest) (*models.Media, error) {
	placeholder := models.Media{
		ID:           req.ID,
		ProjectID:    req.ProjectID,
		Name:         req.Name,
		Type:         req.Type,
		Width:        req.Width,
		Height:       req.Height,
		Duration:     req.Duration,
		Ephemeral:    req.Ephemeral,
		LastModified: time.Now().UTC(),
	}
	c.mu.Lock()
	c.assets = append(c.assets, placeholder)
	c.mu.Unlock()

	uploaded, err := c.store.UploadMedia(ctx, req)
	if err != nil {
		c.remove(req.ID)
		return nil, fmt.Errorf("media: add %s: %w", req.ID, err)
	}

	c.mu.Lock()
	for i := range c.assets {
		if c.assets[i].ID == uploaded.ID {
			c.assets[i] = *uploaded
			break
		}
	}
	c.mu.Unlock()
	return uploaded, nil
}

// Delete removes an asset and cascades to the scene's timeline:
// every element referencing the asset is stripped, as one batch,
// through the whole-timeline save path. The remote delete is confirmed
// first, so a failure leaves local state untouched and no divergence
// can accumulate.
func (c *Controller) Delete(ctx context.Context, projectID, sceneID, mediaID string) (*models.Timeline, error) {
	if err := c.store.DeleteMedia(ctx, projectID, mediaID); err != nil {
		return nil, fmt.Errorf("media: delete %s: %w", mediaID, err)
	}

	tl, err := c.store.LoadTimeline(ctx, sceneID)
	if err != nil {
		return nil, fmt.Errorf("media: cascade %s: load timeline: %w", mediaID, err)
	}
	if tl != nil {
		if refs := tl.ElementsReferencing(mediaID); len(refs) > 0 {
			tl.RemoveElements(refs)
			tl, err = c.store.SaveTimeline(ctx, tl)
			if err != nil {
				return nil, fmt.Errorf("media: cascade %s: save timeline: %w", mediaID, err)
			}
			c.logger.Debug("media: cascade removed elements",
				slog.String("media_id", mediaID),
				slog.Int("count", len(refs)))
		}
	}

	c.remove(mediaID)
	return tl, nil
}

func (c *Controller) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.assets {
		if c.assets[i].ID == id {
			c.assets = append(c.assets[:i], c.assets[i+1:]...)
			return
		}
	}
}
