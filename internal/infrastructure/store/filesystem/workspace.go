package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"printpoller/internal/domain/repository"
	"printpoller/internal/infrastructure/metrics"

	"github.com/google/uuid"
)

const descriptorSuffix = ".print.json"

// Workspace hands out per-job scratch directories under one base path.
type Workspace struct {
	basePath string
}

func (w *Workspace) GetBasePath() string {
	return w.basePath
}

func NewWorkspace(basePath string) (*Workspace, error) {
	if basePath == "" {
		basePath = filepath.Join(os.TempDir(), "printpoller")
	}
	info, err := os.Stat(basePath)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(basePath, 0o755); mkErr != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", basePath, mkErr)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check directory %s: %w", basePath, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("path %s exists but is not a directory", basePath)
	}

	return &Workspace{basePath: basePath}, nil
}

var _ repository.Workspace = (*Workspace)(nil)

// NewScope creates a fresh directory for one processing attempt of jobID.
func (w *Workspace) NewScope(jobID string) (repository.Scope, error) {
	name := sanitize(jobID) + "-" + uuid.NewString()
	dir := filepath.Join(w.basePath, name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create scope directory: %w", err)
	}
	metrics.IncWorkspaceOp("scope")
	return &Scope{dir: dir}, nil
}

// ListScopes returns the names of scope directories currently on disk.
func (w *Workspace) ListScopes(ctx context.Context) ([]string, error) {
	var scopes []string

	err := filepath.WalkDir(w.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() && path != w.basePath {
			scopes = append(scopes, filepath.Base(path))
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return scopes, nil
}

// PurgeStale removes scope directories last modified before cutoff. It is
// meant for leftovers of a process that died mid-job.
func (w *Workspace) PurgeStale(ctx context.Context, cutoff time.Time) (int, error) {
	scopes, err := w.ListScopes(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range scopes {
		dir := filepath.Join(w.basePath, name)
		info, err := os.Stat(dir)
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("failed to delete scope directory: %w", err)
		}
		metrics.IncWorkspaceOp("purge")
		removed++
	}
	return removed, nil
}

type Scope struct {
	dir string
}

func (s *Scope) Dir() string {
	return s.dir
}

func (s *Scope) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// WriteDescriptor stores v as indented JSON next to the document it describes.
func (s *Scope) WriteDescriptor(name string, v any) (string, error) {
	metrics.IncWorkspaceOp("descriptor")

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal descriptor: %w", err)
	}

	path := s.Path(strings.TrimSuffix(name, filepath.Ext(name)) + descriptorSuffix)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write descriptor: %w", err)
	}
	return path, nil
}

func (s *Scope) Cleanup() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to delete scope directory: %w", err)
	}
	metrics.IncWorkspaceOp("cleanup")
	return nil
}

func sanitize(id string) string {
	id = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
	if id == "" {
		return "job"
	}
	if len(id) > 64 {
		id = id[:64]
	}
	return id
}
