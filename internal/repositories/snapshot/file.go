package snapshot

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/KirkDiggler/rpg-compendium/internal/errors"
)

const (
	defaultDir  = ".rpg-compendium"
	defaultFile = "compendium-cache.json"
)

// DefaultPath is the snapshot file under the user's home directory
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve home directory")
	}
	return filepath.Join(home, defaultDir, defaultFile), nil
}

// FileConfig contains configuration for the file snapshot repository
type FileConfig struct {
	// Path defaults to DefaultPath
	Path string
}

// Validate validates the FileConfig and fills the default path
func (cfg *FileConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Path == "" {
		path, err := DefaultPath()
		if err != nil {
			return err
		}
		cfg.Path = path
	}
	return nil
}

// FileRepository keeps the snapshot in a JSON file
type FileRepository struct {
	path string
}

// NewFile creates a file-backed snapshot repository
func NewFile(cfg *FileConfig) (*FileRepository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FileRepository{path: cfg.Path}, nil
}

// Path is the file being written
func (r *FileRepository) Path() string {
	return r.path
}

// Save writes to a temp file in the same directory and renames it over the
// target so readers never see a partial file.
func (r *FileRepository) Save(ctx context.Context, input *SaveInput) (*SaveOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "save snapshot")
	}
	data, err := Encode(input.Snapshot)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".compendium-cache-*.json")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, errors.Wrap(err, "failed to write snapshot")
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close snapshot")
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return nil, errors.Wrapf(err, "failed to move snapshot to %s", r.path)
	}

	slog.Info("Saved snapshot", "path", r.path, "bytes", len(data), "packs", len(input.Snapshot.Packs))
	return &SaveOutput{Bytes: len(data)}, nil
}

// Load reads and decodes the snapshot file
func (r *FileRepository) Load(ctx context.Context, _ *LoadInput) (*LoadOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "load snapshot")
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundf("no snapshot at %s", r.path)
		}
		return nil, errors.Wrapf(err, "failed to read %s", r.path)
	}

	s, report, err := Decode(data)
	if err != nil {
		return nil, err
	}
	for _, w := range report.Warnings {
		slog.Warn("Snapshot field problem", "path", r.path, "warning", w)
	}
	return &LoadOutput{Snapshot: s, Report: report}, nil
}
