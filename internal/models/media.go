package models

import "time"

// MediaType classifies a media asset.
type MediaType string

// Media types accepted by the remote API.
const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// Media is the metadata record for one binary asset. URL points into
// the remote object store and is immutable once set; the blob itself
// never passes through this layer.
type Media struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"projectId"`
	Name         string    `json:"name"`
	Type         MediaType `json:"type"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	Duration     float64   `json:"duration,omitempty"`
	Ephemeral    bool      `json:"ephemeral,omitempty"`
	Source       string    `json:"source,omitempty"`
}
