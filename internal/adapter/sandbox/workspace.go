package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

const workspacePattern = "grader-*"

// workspace is the per-run directory holding the harness and the submitted source.
// MkdirTemp gives every concurrent run its own name.
type workspace struct {
	dir    string
	logger primary.Logger
}

func newWorkspace(base string, files []secondary.File, dirPerm, filePerm os.FileMode, logger primary.Logger) (*workspace, error) {
	dir, err := os.MkdirTemp(base, workspacePattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrWorkspace, err)
	}
	ws := &workspace{dir: dir, logger: logger}

	if err := os.Chmod(dir, dirPerm); err != nil {
		ws.Close()
		return nil, fmt.Errorf("%w: %v", errs.ErrWorkspace, err)
	}

	for _, f := range files {
		if f.Name == "" || filepath.Base(f.Name) != f.Name {
			ws.Close()
			return nil, fmt.Errorf("%w: invalid file name %q", errs.ErrWorkspace, f.Name)
		}
		if err := os.WriteFile(filepath.Join(dir, f.Name), f.Content, filePerm); err != nil {
			ws.Close()
			return nil, fmt.Errorf("%w: failed to write %s: %v", errs.ErrWorkspace, f.Name, err)
		}
	}
	return ws, nil
}

// Close removes the workspace; failures are logged, never returned
func (w *workspace) Close() {
	if err := os.RemoveAll(w.dir); err != nil {
		w.logger.Error("Failed to remove workspace", "dir", w.dir, "error", err)
	}
}
