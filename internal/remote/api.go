package remote

import (
	"context"

	"github.com/voss/atelier/internal/models"
)

// API defines the remote entity operations the rest of the client
// depends on. Consumers should depend on this interface rather than
// the concrete *Client type to facilitate testing with stubs.
type API interface {
	GetProject(ctx context.Context, id string) (*models.ProjectRecord, error)
	CreateProject(ctx context.Context, rec *models.ProjectRecord) error
	UpdateProject(ctx context.Context, rec *models.ProjectRecord) error
	DeleteProject(ctx context.Context, id string) error
	ListProjects(ctx context.Context) ([]models.ProjectRecord, error)

	ListMedia(ctx context.Context, projectID string) ([]models.Media, error)
	UploadMedia(ctx context.Context, req UploadRequest) (*models.Media, error)
	DeleteMedia(ctx context.Context, id string) error

	GetTimeline(ctx context.Context, sceneID string) (*models.Timeline, error)
	PutTimeline(ctx context.Context, tl *models.Timeline) (*models.Timeline, error)
}

// Verify *Client satisfies API at compile time.
var _ API = (*Client)(nil)
