package patch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"strings"

	"github.com/asynkron/gopatch/internal/logging"
)

// ApplyOptions configure how entries are resolved against a file tree.
type ApplyOptions struct {
	// Root is the directory entries are resolved against. Empty means the
	// current working directory.
	Root string
	// Strip drops that many leading components from every entry path.
	Strip int
}

// Result describes the outcome for a single file when applying a patch.
type Result struct {
	// Status is "M" (modified), "A" (created) or "D" (deleted).
	Status string `json:"status"`
	Path   string `json:"path"`
}

type workspace interface {
	Exists(path string) (bool, error)
	Ensure(path string, create bool) (*state, error)
	Delete(st *state) (Result, error)
	Commit(st *state) (Result, error)
}

type state struct {
	path         string
	relativePath string
	lines        []textLine
	originalMode fs.FileMode
	isNew        bool
	hunkStatuses []HunkStatus
}

// Apply applies every entry to the file tree in order. Entries are handled
// one at a time: when one fails, files written for earlier entries stay
// written and the results gathered so far are returned with the error.
func (ps *PatchSet) Apply(ctx context.Context, opts ApplyOptions) ([]Result, error) {
	ws, err := newFilesystemWorkspace(opts.Root)
	if err != nil {
		return nil, err
	}
	return ps.applyTo(ctx, ws, opts.Strip)
}

// Revert undoes the set: every entry is inverted and the entries are
// applied last to first.
func (ps *PatchSet) Revert(ctx context.Context, opts ApplyOptions) ([]Result, error) {
	return ps.Inverse().Apply(ctx, opts)
}

// Reversed returns a set whose entries undo the entries of ps, in the same
// order.
func (ps *PatchSet) Reversed() *PatchSet {
	r := &PatchSet{
		Dialect:     ps.Dialect,
		Errors:      ps.Errors,
		Warnings:    ps.Warnings,
		Diagnostics: ps.Diagnostics,
		logger:      ps.logger,
		Items:       make([]*Patch, len(ps.Items)),
	}
	for i, p := range ps.Items {
		r.Items[i] = p.Reversed()
	}
	return r
}

// Inverse returns the set that undoes ps when applied: every entry
// reversed, last entry first. Revert applies it.
func (ps *PatchSet) Inverse() *PatchSet {
	r := ps.Reversed()
	slices.Reverse(r.Items)
	return r
}

func (ps *PatchSet) applyTo(ctx context.Context, ws workspace, strip int) ([]Result, error) {
	if ws == nil {
		return nil, errors.New("nil workspace")
	}
	log := ps.log()
	total := len(ps.Items)
	var results []Result
	for i, p := range ps.Items {
		if err := ctx.Err(); err != nil {
			return results, &Error{Message: err.Error(), Err: err}
		}
		res, err := applyPatch(ws, p, strip)
		if err != nil {
			log.Error(ctx, "patch failed", err,
				logging.Field("entry", fmt.Sprintf("%d/%d", i+1, total)),
				logging.Field("path", p.displayName()))
			return results, err
		}
		log.Info(ctx, "patched",
			logging.Field("entry", fmt.Sprintf("%d/%d", i+1, total)),
			logging.Field("status", res.Status),
			logging.Field("path", res.Path))
		results = append(results, res)
	}
	return results, nil
}

func applyPatch(ws workspace, p *Patch, strip int) (Result, error) {
	if len(p.Hunks) == 0 {
		return Result{}, newError(CodeInvalidHunk, p.displayName(), "no hunks for %s", p.displayName())
	}
	for i, h := range p.Hunks {
		if h.Invalid {
			return Result{}, newError(CodeInvalidHunk, p.displayName(),
				"hunk %d for %s failed validation and cannot be applied", i+1, p.displayName())
		}
	}

	oldName, newName, err := strippedNames(p, strip)
	if err != nil {
		return Result{}, &Error{Code: CodeStripLevel, RelativePath: p.displayName(), Message: err.Error(), Err: err}
	}

	var st *state
	if p.IsCreation() {
		if newName == DevNull {
			return Result{}, newError(CodeFileNotFound, oldName, "creation of %s has no target name", oldName)
		}
		st, err = ws.Ensure(newName, true)
	} else {
		var name string
		name, err = locate(ws, oldName, newName)
		if err != nil {
			return Result{}, err
		}
		st, err = ws.Ensure(name, false)
	}
	if err != nil {
		return Result{}, err
	}

	lines, err := spliceHunks(st, p.Hunks)
	if err != nil {
		return Result{}, err
	}
	if p.IsDeletion() {
		if len(lines) > 0 {
			return Result{}, newError(CodeHunkMismatch, st.relativePath,
				"%s has %d lines beyond the deleted content", st.relativePath, len(lines))
		}
		return ws.Delete(st)
	}
	st.lines = lines
	return ws.Commit(st)
}

func strippedNames(p *Patch, strip int) (string, string, error) {
	strip1 := func(name string) (string, error) {
		if name == DevNull || strip <= 0 {
			return name, nil
		}
		return StripComponents(name, strip)
	}
	oldName, err := strip1(p.Source)
	if err != nil {
		return "", "", err
	}
	newName, err := strip1(p.Target)
	if err != nil {
		return "", "", err
	}
	return oldName, newName, nil
}

// candidates lists the names an entry may live under, in lookup order.
// Some web editors emit a/ b/ prefixes without any git header; those are
// tried last.
func candidates(oldName, newName string) []string {
	var out []string
	for _, n := range []string{oldName, newName} {
		if n != "" && n != DevNull {
			out = append(out, n)
		}
	}
	if strings.HasPrefix(oldName, "a/") && strings.HasPrefix(newName, "b/") {
		out = append(out, oldName[2:], newName[2:])
	}
	return out
}

func locate(ws workspace, oldName, newName string) (string, error) {
	for _, name := range candidates(oldName, newName) {
		ok, err := ws.Exists(name)
		if err != nil {
			return "", err
		}
		if ok {
			return name, nil
		}
	}
	return "", &Error{
		Code:         CodeFileNotFound,
		RelativePath: oldName,
		Message:      fmt.Sprintf("source/target file does not exist: --- %s +++ %s", oldName, newName),
		Err:          fs.ErrNotExist,
	}
}

// imageStart converts a hunk's 1-based start into a 0-based line index. A
// zero-length range starts after the named line.
func imageStart(start, length int) int {
	if length == 0 {
		return start
	}
	return start - 1
}

// matchImage compares image against lines at start. On mismatch it returns
// the offending offset within image.
func matchImage(lines []textLine, start int, image []Line) (int, bool) {
	if start < 0 {
		return 0, false
	}
	for i, want := range image {
		at := start + i
		if at >= len(lines) || !sameContent(lines[at].Text, want.Content) {
			return i, false
		}
	}
	return 0, true
}

// spliceHunks applies hunks to st.lines and returns the new line sequence.
// Hunks are matched only at their declared offsets.
func spliceHunks(st *state, hunks []Hunk) ([]textLine, error) {
	order := make([]int, len(hunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return hunks[order[a]].StartSrc < hunks[order[b]].StartSrc
	})

	style, consistent := dominantEOL(st.lines)
	out := make([]textLine, 0, len(st.lines))
	cursor := 0
	st.hunkStatuses = nil
	for _, idx := range order {
		h := hunks[idx]
		number := idx + 1
		start := imageStart(h.StartSrc, h.LenSrc)
		if start < cursor || start > len(st.lines) {
			return nil, mismatchError(st, h, number, start, 0, "hunk %d for %s overlaps a previous hunk or starts past the end", number, st.relativePath)
		}
		before := h.Before()
		if off, ok := matchImage(st.lines, start, before); !ok {
			return nil, mismatchError(st, h, number, start, off, "hunk %d doesn't match %s at line %d", number, st.relativePath, start+off+1)
		}

		// Terminators in the patch are trusted when its pre-image carries
		// the same ones as the file; otherwise added lines follow the file.
		restyle := consistent && !sameEOLs(st.lines, start, before)
		out = append(out, st.lines[cursor:start]...)
		src := start
		for _, l := range h.Lines {
			switch l.Kind {
			case LineContext:
				out = append(out, st.lines[src])
				src++
			case LineRemove:
				src++
			case LineAdd:
				eol := l.EOL
				if eol != EOLNone && restyle {
					eol = style
				}
				out = append(out, textLine{Text: l.Content, EOL: eol})
			}
		}
		cursor = src
		st.hunkStatuses = append(st.hunkStatuses, HunkStatus{Number: number, Status: "applied"})
	}
	return append(out, st.lines[cursor:]...), nil
}

// sameEOLs reports whether a non-empty image carries exactly the
// terminators of the lines it matched at start.
func sameEOLs(lines []textLine, start int, image []Line) bool {
	if len(image) == 0 {
		return false
	}
	for i, want := range image {
		if lines[start+i].EOL != want.EOL {
			return false
		}
	}
	return true
}

func mismatchError(st *state, h Hunk, number, start, off int, format string, args ...any) *Error {
	failed := &FailedHunk{Number: number, Hunk: h, Line: start + off + 1}
	if before := h.Before(); off < len(before) {
		failed.Expected = before[off].Content
	}
	if at := start + off; at >= 0 && at < len(st.lines) {
		failed.Actual = st.lines[at].Text
	} else {
		failed.Actual = "<end of file>"
	}
	statuses := append([]HunkStatus{}, st.hunkStatuses...)
	statuses = append(statuses, HunkStatus{Number: number, Status: "no-match"})
	return &Error{
		Code:         CodeHunkMismatch,
		RelativePath: st.relativePath,
		Message:      fmt.Sprintf(format, args...),
		HunkStatuses: statuses,
		FailedHunk:   failed,
	}
}
