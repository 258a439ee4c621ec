package patch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Applicability is the answer of CanPatch and IsPatched.
type Applicability int

const (
	// Indeterminate means no entry of the set names the file.
	Indeterminate Applicability = iota
	// NotApplicable means the file is missing or its content does not line
	// up with the hunks.
	NotApplicable
	// Applicable means every hunk lines up at its declared position.
	Applicable
)

func (a Applicability) String() string {
	switch a {
	case NotApplicable:
		return "not applicable"
	case Applicable:
		return "applicable"
	}
	return "indeterminate"
}

// CanPatch reports whether filename matches the pre-image of the entry that
// names it as source. Entries are looked up by absolute path first, then by
// base name. Target names never match.
func (ps *PatchSet) CanPatch(filename string) (Applicability, error) {
	return ps.check(filename, preImage)
}

// IsPatched reports whether filename already holds the post-image of the
// entry that names it as source, matched at the hunks' target offsets.
func (ps *PatchSet) IsPatched(filename string) (Applicability, error) {
	return ps.check(filename, postImage)
}

func (ps *PatchSet) check(filename string, image func(Hunk) (int, []Line)) (Applicability, error) {
	p, err := ps.findBySource(filename)
	if err != nil || p == nil {
		return Indeterminate, err
	}
	return checkFile(p, filename, image)
}

func preImage(h Hunk) (int, []Line)  { return imageStart(h.StartSrc, h.LenSrc), h.Before() }
func postImage(h Hunk) (int, []Line) { return imageStart(h.StartTgt, h.LenTgt), h.After() }

func checkFile(p *Patch, filename string, image func(Hunk) (int, []Line)) (Applicability, error) {
	for _, h := range p.Hunks {
		if h.Invalid {
			return NotApplicable, nil
		}
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NotApplicable, nil
		}
		return Indeterminate, ioError(filename, err)
	}
	lines := splitLines(string(content))
	for _, h := range p.Hunks {
		start, want := image(h)
		if _, ok := matchImage(lines, start, want); !ok {
			return NotApplicable, nil
		}
	}
	return Applicable, nil
}

// EntryCheck is the applicability of one entry against the file it names
// under a root.
type EntryCheck struct {
	// Path is the file that was inspected, relative to the root.
	Path      string
	CanPatch  Applicability
	IsPatched Applicability
}

// Check evaluates every entry that has a source against the file it names
// under opts.Root, after stripping opts.Strip components. Names are
// resolved the way Apply resolves them, so each entry is checked against
// its own file. Entries without a source are skipped.
func (ps *PatchSet) Check(opts ApplyOptions) ([]EntryCheck, error) {
	ws, err := newFilesystemWorkspace(opts.Root)
	if err != nil {
		return nil, err
	}
	var checks []EntryCheck
	for _, p := range ps.Items {
		if p.Source == DevNull || p.Source == "" {
			continue
		}
		oldName, newName, err := strippedNames(p, opts.Strip)
		if err != nil {
			return checks, &Error{Code: CodeStripLevel, RelativePath: p.displayName(), Message: err.Error(), Err: err}
		}
		name := oldName
		if found, err := locate(ws, oldName, newName); err == nil {
			name = found
		} else if !isNotFound(err) {
			return checks, err
		}
		abs, rel, err := ws.resolvePath(name)
		if err != nil {
			return checks, err
		}
		check := EntryCheck{Path: rel}
		if check.CanPatch, err = checkFile(p, abs, preImage); err != nil {
			return checks, err
		}
		if check.IsPatched, err = checkFile(p, abs, postImage); err != nil {
			return checks, err
		}
		checks = append(checks, check)
	}
	return checks, nil
}

func isNotFound(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Code == CodeFileNotFound
}

func (ps *PatchSet) findBySource(filename string) (*Patch, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}
	for _, p := range ps.Items {
		if p.Source == DevNull || p.Source == "" {
			continue
		}
		srcAbs, err := filepath.Abs(filepath.FromSlash(p.Source))
		if err != nil {
			return nil, err
		}
		if srcAbs == abs {
			return p, nil
		}
	}
	base := filepath.Base(abs)
	for _, p := range ps.Items {
		if p.Source == DevNull || p.Source == "" {
			continue
		}
		if filepath.Base(filepath.FromSlash(p.Source)) == base {
			return p, nil
		}
	}
	return nil, nil
}
