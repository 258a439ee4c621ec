package patch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Preview applies the set to an in-memory copy of the files it touches and
// returns a unified diff of the outcome. Nothing is written to disk.
func (ps *PatchSet) Preview(ctx context.Context, opts ApplyOptions) (string, error) {
	ws, err := newFilesystemWorkspace(opts.Root)
	if err != nil {
		return "", err
	}
	before, err := ps.snapshot(ws, opts.Strip)
	if err != nil {
		return "", err
	}
	after, results, err := ps.ApplyToMemory(ctx, before, opts)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	seen := make(map[string]bool, len(results))
	for _, res := range results {
		if seen[res.Path] {
			continue
		}
		seen[res.Path] = true
		old, existed := before[res.Path]
		updated, exists := after[res.Path]

		diff := difflib.UnifiedDiff{
			A:        previewLines(old),
			B:        previewLines(updated),
			FromFile: "a/" + res.Path,
			ToFile:   "b/" + res.Path,
			Context:  3,
		}
		if !existed {
			diff.FromFile = DevNull
		}
		if !exists {
			diff.ToFile = DevNull
		}
		text, err := difflib.GetUnifiedDiffString(diff)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// snapshot reads every file the entries may resolve to.
func (ps *PatchSet) snapshot(ws *filesystemWorkspace, strip int) (map[string][]byte, error) {
	files := make(map[string][]byte)
	for _, p := range ps.Items {
		oldName, newName, err := strippedNames(p, strip)
		if err != nil {
			// Reported by the apply pass with the entry's context.
			continue
		}
		for _, name := range candidates(oldName, newName) {
			abs, rel, err := ws.resolvePath(name)
			if err != nil {
				continue
			}
			if _, ok := files[rel]; ok {
				continue
			}
			content, err := os.ReadFile(abs)
			switch {
			case err == nil:
				files[rel] = content
			case errors.Is(err, fs.ErrNotExist):
			case isDir(abs):
			default:
				return nil, ioError(rel, err)
			}
		}
	}
	return files, nil
}

func isDir(abs string) bool {
	info, err := os.Stat(abs)
	return err == nil && info.IsDir()
}

func previewLines(content []byte) []string {
	lines := splitLines(string(content))
	if len(lines) == 0 {
		return nil
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text + "\n"
	}
	return out
}
