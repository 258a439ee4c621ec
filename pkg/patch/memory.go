package patch

import (
	"context"
	"strings"
)

// ApplyToMemory applies the set to an in-memory file tree keyed by
// slash-separated relative paths. The provided map is copied before
// mutation and the updated snapshot is returned. opts.Root is ignored.
func (ps *PatchSet) ApplyToMemory(ctx context.Context, files map[string][]byte, opts ApplyOptions) (map[string][]byte, []Result, error) {
	snapshot := make(map[string][]byte, len(files))
	for k, v := range files {
		snapshot[NormPath(k)] = v
	}
	ws := newMemoryWorkspace(snapshot)
	results, err := ps.applyTo(ctx, ws, opts.Strip)
	if err != nil {
		return nil, results, err
	}
	return ws.files, results, nil
}

type memoryWorkspace struct {
	files map[string][]byte
}

func newMemoryWorkspace(files map[string][]byte) *memoryWorkspace {
	return &memoryWorkspace{files: files}
}

func (ws *memoryWorkspace) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == DevNull {
		return "", newError(CodeFileNotFound, name, "invalid patch path %q", name)
	}
	rel := NormPath(name)
	if IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", newError(CodePathEscapesRoot, name, "%s resolves outside of the tree", name)
	}
	if rel == "." {
		return "", newError(CodeNotAFile, name, "%s resolves to the root directory", name)
	}
	return rel, nil
}

func (ws *memoryWorkspace) Exists(name string) (bool, error) {
	rel, err := ws.resolve(name)
	if err != nil {
		return false, err
	}
	_, ok := ws.files[rel]
	return ok, nil
}

func (ws *memoryWorkspace) Ensure(name string, create bool) (*state, error) {
	rel, err := ws.resolve(name)
	if err != nil {
		return nil, err
	}
	content, ok := ws.files[rel]
	switch {
	case ok && create && len(content) > 0:
		return nil, newError(CodeFileExists, rel, "cannot create %s: file already exists", rel)
	case ok:
		return &state{path: rel, relativePath: rel, lines: splitLines(string(content))}, nil
	case create:
		return &state{path: rel, relativePath: rel, isNew: true}, nil
	}
	return nil, newError(CodeFileNotFound, rel, "failed to read %s: file does not exist", rel)
}

func (ws *memoryWorkspace) Delete(st *state) (Result, error) {
	delete(ws.files, st.path)
	return Result{Status: "D", Path: st.relativePath}, nil
}

func (ws *memoryWorkspace) Commit(st *state) (Result, error) {
	ws.files[st.path] = []byte(joinLines(st.lines))
	status := "M"
	if st.isNew {
		status = "A"
	}
	return Result{Status: status, Path: st.relativePath}, nil
}
