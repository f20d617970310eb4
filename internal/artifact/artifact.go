// Package artifact persists rendered charts at their fixed, mode-specific
// locations. Each write replaces the previous artifact; concurrent writers to
// the same path resolve last-writer-wins.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iwvelando/nitrogen-response/internal/response"
	"github.com/iwvelando/nitrogen-response/pkg/constants"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// WriteError reports an artifact that could not be persisted.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write artifact %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Store writes artifacts to a filesystem.
type Store struct {
	fs     afero.Fs
	logger *zap.Logger
}

// NewStore returns a Store backed by fs. A nil fs means the OS filesystem.
func NewStore(logger *zap.Logger, fs afero.Fs) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs, logger: logger}
}

// Fs exposes the underlying filesystem, e.g. for serving stored artifacts.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Write replaces the artifact at path with data. The content is staged in a
// temporary file in the same directory and renamed into place, so a failed
// write leaves any previous artifact untouched.
func (s *Store) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		s.discard(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		s.discard(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := s.fs.Chmod(tmpName, 0644); err != nil {
		s.discard(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		s.discard(tmpName)
		return &WriteError{Path: path, Err: err}
	}

	s.logger.Debug("artifact written",
		zap.String("op", "artifact.Write"),
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	return nil
}

func (s *Store) discard(name string) {
	if err := s.fs.Remove(name); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove temporary artifact",
			zap.String("op", "artifact.discard"),
			zap.String("path", name),
			zap.Error(err),
		)
	}
}

// DefaultPath is the fixed location of a mode's artifact inside dir.
func DefaultPath(dir string, mode response.Mode, format string) string {
	base := constants.YieldArtifactBase
	if mode == response.ModeEconomic {
		base = constants.EconomicArtifactBase
	}
	return filepath.Join(dir, base+"."+format)
}
