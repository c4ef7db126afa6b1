// Package storage persists trained model artifacts in a chartmuseum storage
// backend (local filesystem or S3-compatible bucket).
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/chartmuseum/storage"
)

const (
	modelsPrefix   = "models"
	currentPointer = "current"
	artifactExt    = ".json"
)

// Artifact is a stored model blob with the reference it was saved under.
type Artifact struct {
	Ref  domain.ModelRef
	Blob []byte
}

// ArtifactStore saves and loads versioned model artifacts. Layout:
//
//	models/<key>/<version>.json  artifact blob
//	models/<key>/current         pointer to the active version
type ArtifactStore struct {
	backend storage.Backend
}

// New picks the backend named by cfg.Backend.
func New(cfg config.StorageConfig) (*ArtifactStore, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(cfg.LocalDir), nil
	case "s3":
		backend, err := newS3Backend(cfg)
		if err != nil {
			return nil, err
		}
		return NewArtifactStore(backend), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidConfiguration, cfg.Backend)
	}
}

// NewLocal stores artifacts under dir.
func NewLocal(dir string) *ArtifactStore {
	return NewArtifactStore(storage.NewLocalFilesystemBackend(dir))
}

// NewArtifactStore wraps an existing backend.
func NewArtifactStore(backend storage.Backend) *ArtifactStore {
	return &ArtifactStore{backend: backend}
}

type pointer struct {
	Kind    string `json:"kind"`
	Version string `json:"version"`
}

// SaveModel writes blob as ref.Version of ref.Key and makes it current.
func (s *ArtifactStore) SaveModel(ctx context.Context, ref domain.ModelRef, blob []byte) error {
	if ref.Key == "" || ref.Version == "" {
		return fmt.Errorf("save model: key and version are required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.backend.PutObject(versionPath(ref.Key, ref.Version), blob); err != nil {
		return fmt.Errorf("save model %s: %w", ref, err)
	}

	ptr, err := json.Marshal(pointer{Kind: ref.Kind, Version: ref.Version})
	if err != nil {
		return err
	}
	if err := s.backend.PutObject(pointerPath(ref.Key), ptr); err != nil {
		return fmt.Errorf("update current pointer for %s: %w", ref.Key, err)
	}
	return nil
}

// LoadModel returns the current artifact for key, or domain.ErrNotFound.
func (s *ArtifactStore) LoadModel(ctx context.Context, key string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	obj, err := s.backend.GetObject(pointerPath(key))
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("model %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read current pointer for %s: %w", key, err)
	}

	var ptr pointer
	if err := json.Unmarshal(obj.Content, &ptr); err != nil {
		return nil, fmt.Errorf("parse current pointer for %s: %w", key, err)
	}

	return s.LoadVersion(ctx, domain.ModelRef{Key: key, Kind: ptr.Kind, Version: ptr.Version})
}

// LoadVersion returns one specific stored version.
func (s *ArtifactStore) LoadVersion(ctx context.Context, ref domain.ModelRef) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	obj, err := s.backend.GetObject(versionPath(ref.Key, ref.Version))
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("model %s: %w", ref, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read model %s: %w", ref, err)
	}
	return &Artifact{Ref: ref, Blob: obj.Content}, nil
}

// ListVersions returns stored versions of key in ascending order.
func (s *ArtifactStore) ListVersions(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objects, err := s.backend.ListObjects(path.Join(modelsPrefix, key))
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list models for %s: %w", key, err)
	}

	versions := make([]string, 0, len(objects))
	for _, obj := range objects {
		name := path.Base(obj.Path)
		if !strings.HasSuffix(name, artifactExt) {
			continue
		}
		versions = append(versions, strings.TrimSuffix(name, artifactExt))
	}
	sort.Strings(versions)
	return versions, nil
}

func versionPath(key, version string) string {
	return path.Join(modelsPrefix, key, version+artifactExt)
}

func pointerPath(key string) string {
	return path.Join(modelsPrefix, key, currentPointer)
}

func isNotExist(err error) bool {
	if errors.Is(err, os.ErrNotExist) || os.IsNotExist(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "NotFound")
}
