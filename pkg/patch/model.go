package patch

import "strings"

// Dialect identifies the tool convention a patch was produced with.
type Dialect string

const (
	// DialectPlain is a bare unified diff without any tool-specific header.
	DialectPlain Dialect = "plain"
	// DialectGit is produced by "git diff" / "git format-patch".
	DialectGit Dialect = "git"
	// DialectSVN is produced by "svn diff" (Index: header).
	DialectSVN Dialect = "svn"
	// DialectHg is produced by Mercurial ("hg diff" / "hg export").
	DialectHg Dialect = "hg"
)

// DevNull marks the missing side of a file creation or deletion.
const DevNull = "/dev/null"

// EOL records which terminator a line carried in its original text.
type EOL uint8

const (
	// EOLNone means the line was the last one and had no terminator.
	EOLNone EOL = iota
	// EOLLF is a bare "\n".
	EOLLF
	// EOLCRLF is "\r\n".
	EOLCRLF
)

// String returns the terminator bytes.
func (e EOL) String() string {
	switch e {
	case EOLLF:
		return "\n"
	case EOLCRLF:
		return "\r\n"
	}
	return ""
}

// LineKind classifies a hunk body line.
type LineKind byte

const (
	LineContext LineKind = ' '
	LineAdd     LineKind = '+'
	LineRemove  LineKind = '-'

	// lineBlank is an empty body line emitted by the lexer; the autofix
	// pipeline rewrites it into an empty context line.
	lineBlank LineKind = 0
)

// Line is a single hunk body line.
type Line struct {
	Kind    LineKind
	Content string
	EOL     EOL
}

// Hunk is one contiguous change region of a file.
type Hunk struct {
	StartSrc int
	LenSrc   int
	StartTgt int
	LenTgt   int
	// Desc is the text following the closing "@@", usually the enclosing
	// function. Display only.
	Desc  string
	Lines []Line
	// Invalid is set when the hunk failed validation. Such hunks are kept
	// for diagnostics and are never applied.
	Invalid bool
}

// Before returns the pre-image lines (context and removed).
func (h Hunk) Before() []Line {
	out := make([]Line, 0, h.LenSrc)
	for _, l := range h.Lines {
		if l.Kind != LineAdd {
			out = append(out, l)
		}
	}
	return out
}

// After returns the post-image lines (context and added).
func (h Hunk) After() []Line {
	out := make([]Line, 0, h.LenTgt)
	for _, l := range h.Lines {
		if l.Kind != LineRemove {
			out = append(out, l)
		}
	}
	return out
}

func (h Hunk) reversed() Hunk {
	r := Hunk{
		StartSrc: h.StartTgt,
		LenSrc:   h.LenTgt,
		StartTgt: h.StartSrc,
		LenTgt:   h.LenSrc,
		Desc:     h.Desc,
		Invalid:  h.Invalid,
		Lines:    make([]Line, len(h.Lines)),
	}
	for i, l := range h.Lines {
		switch l.Kind {
		case LineAdd:
			l.Kind = LineRemove
		case LineRemove:
			l.Kind = LineAdd
		}
		r.Lines[i] = l
	}
	return r
}

// Patch describes the changes to a single file.
type Patch struct {
	Source string
	Target string
	// Header holds the verbatim lines, terminators included, that preceded
	// the "--- " line of this entry.
	Header []string
	Hunks  []Hunk
	Type   Dialect

	// vcsPrefixed records that a/ and b/ were dropped from the names and
	// must be restored when the entry is written out.
	vcsPrefixed bool
}

// Added returns the number of added lines across all hunks.
func (p *Patch) Added() int {
	n := 0
	for _, h := range p.Hunks {
		for _, l := range h.Lines {
			if l.Kind == LineAdd {
				n++
			}
		}
	}
	return n
}

// Removed returns the number of removed lines across all hunks.
func (p *Patch) Removed() int {
	n := 0
	for _, h := range p.Hunks {
		for _, l := range h.Lines {
			if l.Kind == LineRemove {
				n++
			}
		}
	}
	return n
}

// IsCreation reports whether the hunks declare no pre-image at all.
func (p *Patch) IsCreation() bool {
	if len(p.Hunks) == 0 {
		return false
	}
	for _, h := range p.Hunks {
		if h.LenSrc != 0 {
			return false
		}
	}
	return true
}

// IsDeletion reports whether the hunks declare no post-image at all.
func (p *Patch) IsDeletion() bool {
	if len(p.Hunks) == 0 {
		return false
	}
	for _, h := range p.Hunks {
		if h.LenTgt != 0 {
			return false
		}
	}
	return true
}

// Reversed returns a copy with source and target swapped and every hunk
// inverted, so applying it undoes the original.
func (p *Patch) Reversed() *Patch {
	r := &Patch{
		Source: p.Target,
		Target: p.Source,
		Header: append([]string(nil), p.Header...),
		Type:   p.Type,
		Hunks:  make([]Hunk, len(p.Hunks)),

		vcsPrefixed: p.vcsPrefixed,
	}
	for i, h := range p.Hunks {
		r.Hunks[i] = h.reversed()
	}
	return r
}

// displayName is the path shown for the entry in listings and diffstat.
func (p *Patch) displayName() string {
	if p.Target == DevNull || strings.TrimSpace(p.Target) == "" {
		return p.Source
	}
	return p.Target
}
