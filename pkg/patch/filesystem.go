package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type filesystemWorkspace struct {
	root string
}

func newFilesystemWorkspace(root string) (*filesystemWorkspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	return &filesystemWorkspace{root: abs}, nil
}

// resolvePath joins name under the root and refuses anything that ends up
// outside of it.
func (ws *filesystemWorkspace) resolvePath(name string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == DevNull {
		return "", "", newError(CodeFileNotFound, name, "invalid patch path %q", name)
	}
	var abs string
	if IsAbs(name) && filepath.IsAbs(filepath.FromSlash(name)) {
		abs = filepath.Clean(filepath.FromSlash(name))
	} else {
		abs = filepath.Join(ws.root, filepath.FromSlash(NormPath(name)))
	}
	rel, err := filepath.Rel(ws.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", newError(CodePathEscapesRoot, name, "%s resolves outside of %s", name, ws.root)
	}
	if rel == "." {
		return "", "", newError(CodeNotAFile, name, "%s resolves to the root directory", name)
	}
	return abs, filepath.ToSlash(rel), nil
}

func (ws *filesystemWorkspace) Exists(name string) (bool, error) {
	abs, rel, err := ws.resolvePath(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, ioError(rel, err)
	}
	return true, nil
}

func (ws *filesystemWorkspace) Ensure(name string, create bool) (*state, error) {
	abs, rel, err := ws.resolvePath(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	switch {
	case err == nil:
		if !info.Mode().IsRegular() {
			return nil, newError(CodeNotAFile, rel, "not a file - %s", rel)
		}
		if create && info.Size() > 0 {
			return nil, newError(CodeFileExists, rel, "cannot create %s: file already exists", rel)
		}
		content, readErr := os.ReadFile(abs)
		if readErr != nil {
			return nil, ioError(rel, readErr)
		}
		return &state{
			path:         abs,
			relativePath: rel,
			lines:        splitLines(string(content)),
			originalMode: info.Mode(),
		}, nil
	case errors.Is(err, fs.ErrNotExist):
		if !create {
			return nil, &Error{Code: CodeFileNotFound, RelativePath: rel, Message: fmt.Sprintf("failed to read %s: file does not exist", rel), Err: err}
		}
		return &state{path: abs, relativePath: rel, isNew: true}, nil
	default:
		return nil, ioError(rel, err)
	}
}

func (ws *filesystemWorkspace) Delete(st *state) (Result, error) {
	if err := os.Remove(st.path); err != nil {
		return Result{}, ioError(st.relativePath, err)
	}
	return Result{Status: "D", Path: st.relativePath}, nil
}

func (ws *filesystemWorkspace) Commit(st *state) (Result, error) {
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return Result{}, &Error{Code: CodeIO, RelativePath: st.relativePath, Message: fmt.Sprintf("failed to create directory for %s: %v", st.relativePath, err), Err: err}
	}

	perm := st.originalMode & fs.ModePerm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.WriteFile(st.path, []byte(joinLines(st.lines)), perm); err != nil {
		return Result{}, &Error{Code: CodeIO, RelativePath: st.relativePath, Message: fmt.Sprintf("failed to write %s: %v", st.relativePath, err), Err: err}
	}

	// WriteFile only applies perm on creation; restore special bits and any
	// mode the umask trimmed.
	if st.originalMode != 0 {
		desired := st.originalMode & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
		info, err := os.Stat(st.path)
		if err != nil {
			return Result{}, ioError(st.relativePath, err)
		}
		if info.Mode()&(fs.ModePerm|fs.ModeSetuid|fs.ModeSetgid|fs.ModeSticky) != desired {
			if err := os.Chmod(st.path, desired); err != nil {
				return Result{}, &Error{Code: CodeIO, RelativePath: st.relativePath, Message: fmt.Sprintf("failed to restore permissions for %s: %v", st.relativePath, err), Err: err}
			}
		}
	}

	status := "M"
	if st.isNew {
		status = "A"
	}
	return Result{Status: status, Path: st.relativePath}, nil
}
