package models

import "time"

// Element kinds. Media elements carry a back-reference to a Media
// asset; the reference is non-owning.
const (
	ElementMedia = "media"
	ElementText  = "text"
	ElementShape = "shape"
)

// Timeline holds the full ordered track collection for one scene.
// It is always read and written wholesale; there is no partial-track
// update path.
type Timeline struct {
	SceneID   string    `json:"sceneId"`
	Tracks    []Track   `json:"tracks"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Track is an ordered collection of elements.
type Track struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Elements []Element `json:"elements"`
}

// Element is one item on a track. Start and Duration are seconds.
type Element struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	MediaID  string  `json:"mediaId,omitempty"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// ElementsReferencing returns the ids of every element, on any track,
// whose MediaID equals mediaID.
func (t *Timeline) ElementsReferencing(mediaID string) []string {
	var ids []string
	for _, tr := range t.Tracks {
		for _, el := range tr.Elements {
			if el.MediaID == mediaID {
				ids = append(ids, el.ID)
			}
		}
	}
	return ids
}

// RemoveElements drops the elements with the given ids from every
// track, preserving the order of the rest.
func (t *Timeline) RemoveElements(ids []string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	for i := range t.Tracks {
		kept := t.Tracks[i].Elements[:0]
		for _, el := range t.Tracks[i].Elements {
			if _, ok := drop[el.ID]; !ok {
				kept = append(kept, el)
			}
		}
		t.Tracks[i].Elements = kept
	}
}
