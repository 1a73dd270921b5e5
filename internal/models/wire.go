package models

import (
	"fmt"
	"time"
)

// ProjectRecord is the wire shape of a project: flat scene records and
// RFC 3339 timestamp strings, exactly as the remote API exchanges them.
type ProjectRecord struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Thumbnail      string        `json:"thumbnail,omitempty"`
	Scenes         []SceneRecord `json:"scenes"`
	CurrentSceneID string        `json:"currentSceneId,omitempty"`
	CanvasWidth    int           `json:"canvasWidth,omitempty"`
	CanvasHeight   int           `json:"canvasHeight,omitempty"`
	CanvasMode     string        `json:"canvasMode,omitempty"`
	Background     string        `json:"background,omitempty"`
	FPS            int           `json:"fps,omitempty"`
	Bookmarks      []float64     `json:"bookmarks,omitempty"`
	CreatedAt      string        `json:"createdAt,omitempty"`
	UpdatedAt      string        `json:"updatedAt,omitempty"`
}

// SceneRecord is the wire shape of a scene.
type SceneRecord struct {
	ID         string `json:"id"`
	ProjectID  string `json:"projectId"`
	Name       string `json:"name"`
	IsMain     bool   `json:"isMain"`
	OrderIndex int    `json:"orderIndex"`
}

// ToRecord converts a project to its wire shape.
func (p *Project) ToRecord() *ProjectRecord {
	rec := &ProjectRecord{
		ID:             p.ID,
		Name:           p.Name,
		Thumbnail:      p.Thumbnail,
		Scenes:         make([]SceneRecord, len(p.Scenes)),
		CurrentSceneID: p.CurrentSceneID,
		CanvasWidth:    p.CanvasWidth,
		CanvasHeight:   p.CanvasHeight,
		CanvasMode:     p.CanvasMode,
		Background:     p.Background,
		FPS:            p.FPS,
		Bookmarks:      p.Bookmarks,
	}
	if !p.CreatedAt.IsZero() {
		rec.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if !p.UpdatedAt.IsZero() {
		rec.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	for i, sc := range p.Scenes {
		rec.Scenes[i] = SceneRecord{
			ID:         sc.ID,
			ProjectID:  sc.ProjectID,
			Name:       sc.Name,
			IsMain:     sc.IsMain,
			OrderIndex: sc.OrderIndex,
		}
	}
	return rec
}

// ProjectFromRecord converts a wire record back into the domain shape.
// Timestamps must be RFC 3339 or empty.
func ProjectFromRecord(rec *ProjectRecord) (*Project, error) {
	created, err := parseWireTime(rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("models: project %s createdAt: %w", rec.ID, err)
	}
	updated, err := parseWireTime(rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("models: project %s updatedAt: %w", rec.ID, err)
	}
	p := &Project{
		ID:             rec.ID,
		Name:           rec.Name,
		Thumbnail:      rec.Thumbnail,
		Scenes:         make([]Scene, len(rec.Scenes)),
		CurrentSceneID: rec.CurrentSceneID,
		CanvasWidth:    rec.CanvasWidth,
		CanvasHeight:   rec.CanvasHeight,
		CanvasMode:     rec.CanvasMode,
		Background:     rec.Background,
		FPS:            rec.FPS,
		Bookmarks:      rec.Bookmarks,
		CreatedAt:      created,
		UpdatedAt:      updated,
	}
	for i, sc := range rec.Scenes {
		p.Scenes[i] = Scene{
			ID:         sc.ID,
			ProjectID:  sc.ProjectID,
			Name:       sc.Name,
			IsMain:     sc.IsMain,
			OrderIndex: sc.OrderIndex,
		}
	}
	return p, nil
}

func parseWireTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
