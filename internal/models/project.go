// Package models defines the domain types for Atelier.
package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Canvas modes.
const (
	CanvasModePreset = "preset"
	CanvasModeCustom = "custom"
)

// Project is the in-memory representation of an editing project.
// The remote authority owns it; local copies are session state only.
type Project struct {
	ID             string
	Name           string
	Thumbnail      string
	Scenes         []Scene
	CurrentSceneID string
	CanvasWidth    int
	CanvasHeight   int
	CanvasMode     string
	Background     string
	FPS            int
	Bookmarks      []float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Scene belongs to exactly one project. Exactly one scene per project
// is the main scene, and it is never deletable.
type Scene struct {
	ID         string
	ProjectID  string
	Name       string
	IsMain     bool
	OrderIndex int
}

// Validate checks the project's structural invariants: scalar fields,
// exactly one main scene, unique order indexes, and a current scene
// that actually exists.
func (p *Project) Validate() error {
	if err := validation.ValidateStruct(p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.CanvasMode, validation.In(CanvasModePreset, CanvasModeCustom)),
		validation.Field(&p.FPS, validation.Min(0)),
	); err != nil {
		return err
	}

	mains := 0
	seen := make(map[int]string, len(p.Scenes))
	for _, sc := range p.Scenes {
		if sc.ID == "" {
			return fmt.Errorf("models: scene without id in project %s", p.ID)
		}
		if sc.IsMain {
			mains++
		}
		if prev, ok := seen[sc.OrderIndex]; ok {
			return fmt.Errorf("models: scenes %s and %s share order index %d", prev, sc.ID, sc.OrderIndex)
		}
		seen[sc.OrderIndex] = sc.ID
	}
	if len(p.Scenes) > 0 && mains != 1 {
		return fmt.Errorf("models: project %s has %d main scenes, want exactly 1", p.ID, mains)
	}
	if p.CurrentSceneID != "" && p.Scene(p.CurrentSceneID) == nil {
		return fmt.Errorf("models: current scene %s not in project %s", p.CurrentSceneID, p.ID)
	}
	return nil
}

// Scene returns the scene with the given id, or nil.
func (p *Project) Scene(id string) *Scene {
	for i := range p.Scenes {
		if p.Scenes[i].ID == id {
			return &p.Scenes[i]
		}
	}
	return nil
}

// MainScene returns the scene marked as main, or nil.
func (p *Project) MainScene() *Scene {
	for i := range p.Scenes {
		if p.Scenes[i].IsMain {
			return &p.Scenes[i]
		}
	}
	return nil
}

// RemoveScene drops the scene with the given id. It reports whether a
// scene was removed. Callers enforce the main-scene rule before this.
func (p *Project) RemoveScene(id string) bool {
	for i := range p.Scenes {
		if p.Scenes[i].ID == id {
			p.Scenes = append(p.Scenes[:i], p.Scenes[i+1:]...)
			return true
		}
	}
	return false
}
