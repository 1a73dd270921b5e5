// Package autoimport watches a drop directory and uploads media files
// found there through the media controller. Files are deduplicated by
// content digest so re-dropping or renaming a file never uploads twice.
package autoimport

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/voss/atelier/internal/apperr"
	"github.com/voss/atelier/internal/checksum"
	"github.com/voss/atelier/internal/kvstore"
	"github.com/voss/atelier/internal/models"
	"github.com/voss/atelier/internal/remote"
)

// Partition is the key-value store partition holding the import
// ledger: digest -> media id.
const Partition = "imports"

var extTypes = map[string]models.MediaType{
	".png":  models.MediaImage,
	".jpg":  models.MediaImage,
	".jpeg": models.MediaImage,
	".gif":  models.MediaImage,
	".webp": models.MediaImage,
	".mp4":  models.MediaVideo,
	".mov":  models.MediaVideo,
	".webm": models.MediaVideo,
	".mp3":  models.MediaAudio,
	".wav":  models.MediaAudio,
	".ogg":  models.MediaAudio,
	".m4a":  models.MediaAudio,
}

// Uploader is the slice of the media controller the importer needs.
type Uploader interface {
	Add(ctx context.Context, req remote.UploadRequest) (*models.Media, error)
}

// EventCallback is called after a watcher-driven import with the new
// media id and the source path.
type EventCallback func(mediaID, path string)

// Importer uploads dropped files into one project.
type Importer struct {
	up        Uploader
	ledger    kvstore.Store
	dir       string
	projectID string
	logger    *slog.Logger
}

// New creates an importer for the given drop directory and project.
func New(up Uploader, ledger kvstore.Store, dir, projectID string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{up: up, ledger: ledger, dir: dir, projectID: projectID, logger: logger}
}

// Sweep walks the drop directory and imports every media file whose
// digest is not yet in the ledger.
func (i *Importer) Sweep(ctx context.Context) error {
	return filepath.WalkDir(i.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := mediaTypeFor(path); !ok {
			return nil
		}
		if _, impErr := i.importFile(ctx, path); impErr != nil {
			i.logger.Warn("autoimport: sweep import failed",
				slog.String("path", path), slog.String("error", impErr.Error()))
		}
		return nil
	})
}

// Watch sweeps the drop directory and then processes file change
// events until ctx is cancelled. It calls cb (if non-nil) after each
// watcher-driven import.
//
// New directories created at runtime are added to the watch list and
// swept for files that arrived before the watch was in place.
func (i *Importer) Watch(ctx context.Context, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, i.dir); err != nil {
		return err
	}
	if err := i.Sweep(ctx); err != nil {
		i.logger.Warn("autoimport: startup sweep failed", slog.String("error", err.Error()))
	}

	i.logger.Info("autoimport: started", slog.String("dir", i.dir))

	for {
		select {
		case <-ctx.Done():
			i.logger.Info("autoimport: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						i.logger.Warn("autoimport: add new dir failed",
							slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					} else {
						i.logger.Debug("autoimport: watching new dir", slog.String("path", ev.Name))
					}
					i.sweepNewDir(ctx, ev.Name, cb)
					continue
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if _, ok := mediaTypeFor(ev.Name); !ok {
				continue
			}

			id, impErr := i.importFile(ctx, ev.Name)
			if impErr != nil {
				i.logger.Warn("autoimport: import failed",
					slog.String("path", ev.Name), slog.String("error", impErr.Error()))
				continue
			}
			if id != "" {
				i.logger.Debug("autoimport: imported",
					slog.String("path", ev.Name), slog.String("media_id", id))
				if cb != nil {
					cb(id, ev.Name)
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			i.logger.Error("autoimport: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// sweepNewDir imports any media files already present in a newly
// created directory.
func (i *Importer) sweepNewDir(ctx context.Context, dirPath string, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if _, ok := mediaTypeFor(path); !ok {
			return nil
		}
		id, impErr := i.importFile(ctx, path)
		if impErr != nil {
			i.logger.Warn("autoimport: import from new dir failed",
				slog.String("path", path), slog.String("error", impErr.Error()))
			return nil
		}
		if id != "" && cb != nil {
			cb(id, path)
		}
		return nil
	})
}

// importFile uploads one file unless its digest is already in the
// ledger. It returns the new media id, or "" when the file was
// skipped.
func (i *Importer) importFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		// Still being written; the Write event will bring it back.
		return "", nil
	}
	mt, ok := mediaTypeFor(path)
	if !ok {
		return "", nil
	}

	digest := checksum.Sum(data)
	if _, getErr := i.ledger.Get(ctx, Partition, digest); getErr == nil {
		return "", nil
	} else if !errors.Is(getErr, apperr.ErrNotFound) {
		return "", getErr
	}

	id := uuid.New().String()
	name := filepath.Base(path)
	if _, addErr := i.up.Add(ctx, remote.UploadRequest{
		ID:        id,
		ProjectID: i.projectID,
		Name:      name,
		Type:      mt,
		Filename:  name,
		File:      bytes.NewReader(data),
	}); addErr != nil {
		return "", addErr
	}

	if setErr := i.ledger.Set(ctx, Partition, digest, []byte(id)); setErr != nil {
		i.logger.Warn("autoimport: ledger write failed",
			slog.String("digest", digest), slog.String("error", setErr.Error()))
	}
	return id, nil
}

func mediaTypeFor(path string) (models.MediaType, bool) {
	mt, ok := extTypes[strings.ToLower(filepath.Ext(path))]
	return mt, ok
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
