package remote

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/voss/atelier/internal/apperr"
	"github.com/voss/atelier/internal/models"
	"github.com/voss/atelier/internal/testutil"
)

func testClient(t *testing.T) (*Client, *testutil.FakeRemote) {
	t.Helper()
	fake := testutil.NewFakeRemote()
	srv := fake.Server(t)
	return NewClient(srv.URL, "", 5*time.Second), fake
}

func TestProjectCreateGetUpdate(t *testing.T) {
	c, _ := testClient(t)
	ctx := context.Background()

	rec := &models.ProjectRecord{ID: "p1", Name: "First"}
	if err := c.CreateProject(ctx, rec); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	got, err := c.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Name != "First" {
		t.Errorf("name = %q", got.Name)
	}

	rec.Name = "Renamed"
	if err := c.UpdateProject(ctx, rec); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	got, _ = c.GetProject(ctx, "p1")
	if got.Name != "Renamed" {
		t.Errorf("name after update = %q", got.Name)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	c, _ := testClient(t)
	_, err := c.GetProject(context.Background(), "ghost")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteProject_Idempotent(t *testing.T) {
	c, _ := testClient(t)
	ctx := context.Background()

	_ = c.CreateProject(ctx, &models.ProjectRecord{ID: "p1", Name: "x"})
	if err := c.DeleteProject(ctx, "p1"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	// The remote answers 404 now; the client tolerates it.
	if err := c.DeleteProject(ctx, "p1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestUploadMedia_FieldsAndBlob(t *testing.T) {
	c, fake := testClient(t)

	media, err := c.UploadMedia(context.Background(), UploadRequest{
		ID:        "m1",
		ProjectID: "p1",
		Name:      "clip.mp4",
		Type:      models.MediaVideo,
		Width:     1280,
		Height:    720,
		Duration:  3.25,
		Filename:  "clip.mp4",
		File:      strings.NewReader("fake-mp4-bytes"),
	})
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if media.ID != "m1" || media.Type != models.MediaVideo {
		t.Errorf("media = %+v", media)
	}
	if media.URL == "" {
		t.Error("upload should return an asset URL")
	}
	if media.Size != int64(len("fake-mp4-bytes")) {
		t.Errorf("size = %d", media.Size)
	}
	if media.Width != 1280 || media.Duration != 3.25 {
		t.Errorf("dimensions = %dx%d dur %v", media.Width, media.Height, media.Duration)
	}
	if !fake.HasMedia("m1") {
		t.Error("media not stored server-side")
	}
}

func TestListMedia_FiltersByProject(t *testing.T) {
	c, fake := testClient(t)
	fake.SeedMedia(
		models.Media{ID: "m1", ProjectID: "p1", Type: models.MediaImage},
		models.Media{ID: "m2", ProjectID: "p2", Type: models.MediaAudio},
	)

	got, err := c.ListMedia(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ListMedia: %v", err)
	}
	if len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("media = %+v", got)
	}
}

func TestDeleteMedia_Idempotent(t *testing.T) {
	c, fake := testClient(t)
	fake.SeedMedia(models.Media{ID: "m1", ProjectID: "p1"})
	ctx := context.Background()

	if err := c.DeleteMedia(ctx, "m1"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := c.DeleteMedia(ctx, "m1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestGetTimeline_NotFound(t *testing.T) {
	c, _ := testClient(t)
	_, err := c.GetTimeline(context.Background(), "fresh-scene")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPutThenGetTimeline(t *testing.T) {
	c, _ := testClient(t)
	ctx := context.Background()

	tl := &models.Timeline{
		SceneID: "s1",
		Tracks: []models.Track{
			{ID: "t1", Elements: []models.Element{{ID: "e1", Kind: models.ElementMedia, MediaID: "m1"}}},
		},
	}
	saved, err := c.PutTimeline(ctx, tl)
	if err != nil {
		t.Fatalf("PutTimeline: %v", err)
	}
	if saved.UpdatedAt.IsZero() {
		t.Error("server should stamp updatedAt")
	}

	got, err := c.GetTimeline(ctx, "s1")
	if err != nil {
		t.Fatalf("GetTimeline: %v", err)
	}
	if len(got.Tracks) != 1 || got.Tracks[0].Elements[0].MediaID != "m1" {
		t.Errorf("tracks = %+v", got.Tracks)
	}
}

func TestServerFailureSurfaces(t *testing.T) {
	c, fake := testClient(t)
	fake.SeedMedia(models.Media{ID: "m1", ProjectID: "p1"})
	fake.FailMediaDelete["m1"] = true

	err := c.DeleteMedia(context.Background(), "m1")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should carry the status: %v", err)
	}
}
