package patch

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/asynkron/gopatch/internal/logging"
)

var (
	reHunkHead = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)$`)
	reSource   = regexp.MustCompile(`^--- ([^\t]+)`)
	reTarget   = regexp.MustCompile(`^\+\+\+ ([^\t]+)`)
)

// Options configure parsing.
type Options struct {
	// Logger receives a line for every diagnostic and autofix. Nil discards.
	Logger logging.Logger
}

// PatchSet is the parsed content of a patch file.
type PatchSet struct {
	Items []*Patch
	// Dialect is fixed by the first tool marker found in the text.
	Dialect Dialect
	// Errors counts structural problems. Entries affected by one must not
	// be applied.
	Errors int
	// Warnings counts problems the parser repaired on its own.
	Warnings    int
	Diagnostics []Diagnostic

	logger logging.Logger
}

// NewPatchSet returns an empty set ready for Parse.
func NewPatchSet(opts Options) *PatchSet {
	return &PatchSet{Dialect: DialectPlain, logger: logging.OrNoOp(opts.Logger)}
}

// FromString parses text. Check OK on the result.
func FromString(text string, opts Options) *PatchSet {
	ps := NewPatchSet(opts)
	ps.parse(text)
	return ps
}

// FromFile reads and parses the patch at path. The returned error is only
// set for I/O failures; parse problems are reported through OK, Errors and
// Diagnostics.
func FromFile(path string, opts Options) (*PatchSet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patch %s: %w", path, err)
	}
	return FromString(string(content), opts), nil
}

// Parse replaces the content of ps with the patch read from r and reports
// whether it parsed cleanly.
func (ps *PatchSet) Parse(r io.Reader) (bool, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return false, fmt.Errorf("read patch: %w", err)
	}
	return ps.parse(string(content)), nil
}

// Len returns the number of file entries.
func (ps *PatchSet) Len() int {
	return len(ps.Items)
}

// OK reports whether the set parsed without structural errors and holds at
// least one entry.
func (ps *PatchSet) OK() bool {
	return ps.Errors == 0 && len(ps.Items) > 0
}

func (ps *PatchSet) log() logging.Logger {
	return logging.OrNoOp(ps.logger)
}

func (ps *PatchSet) reset() {
	ps.Items = nil
	ps.Dialect = DialectPlain
	ps.Errors = 0
	ps.Warnings = 0
	ps.Diagnostics = nil
}

type parseState int

const (
	stateHeader parseState = iota
	stateTarget
	stateHunkHead
	stateHunkBody
	stateHunkDone
	stateSkip
)

type parser struct {
	ps  *PatchSet
	ctx context.Context

	state        parseState
	lineno       int
	header       []string
	srcName      string
	srcRaw       string
	current      *Patch
	hunk         *Hunk
	srcSeen      int
	tgtSeen      int
	dialectFixed bool
}

func (ps *PatchSet) parse(text string) bool {
	ps.reset()
	p := &parser{ps: ps, ctx: context.Background()}

	lines := splitLines(text)
	for i := 0; i < len(lines); {
		p.lineno = i + 1
		if p.step(lines[i]) {
			i++
		}
	}
	p.finish()

	ps.log().Debug(p.ctx, "parsed patch",
		logging.Field("files", len(ps.Items)),
		logging.Field("dialect", ps.Dialect),
		logging.Field("errors", ps.Errors),
		logging.Field("warnings", ps.Warnings))
	return ps.OK()
}

func (p *parser) errorf(line int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.ps.Errors++
	p.ps.Diagnostics = append(p.ps.Diagnostics, Diagnostic{Severity: SeverityError, Line: line, Message: msg})
	p.ps.log().Warn(p.ctx, msg, logging.Field("line", line))
}

// warn records a counted autofix.
func (p *parser) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.ps.Warnings++
	p.ps.Diagnostics = append(p.ps.Diagnostics, Diagnostic{Severity: SeverityWarning, Message: msg})
	p.ps.log().Warn(p.ctx, msg)
}

// note logs without counting.
func (p *parser) note(format string, args ...any) {
	p.ps.log().Info(p.ctx, fmt.Sprintf(format, args...))
}

// step processes one line and reports whether it was consumed. A false
// return means the state changed and the same line must be looked at again.
func (p *parser) step(l textLine) bool {
	switch p.state {
	case stateHeader:
		if !strings.HasPrefix(l.Text, "--- ") {
			p.header = append(p.header, l.raw())
			return true
		}
		m := reSource.FindStringSubmatch(l.Text)
		if m == nil || strings.TrimSpace(m[1]) == "" {
			p.errorf(p.lineno, "invalid source filename")
			p.header = append(p.header, l.raw())
			return true
		}
		p.srcName = strings.TrimSpace(m[1])
		p.srcRaw = l.raw()
		p.state = stateTarget
		return true

	case stateTarget:
		if strings.HasPrefix(l.Text, "+++ ") {
			m := reTarget.FindStringSubmatch(l.Text)
			if m == nil || strings.TrimSpace(m[1]) == "" {
				p.errorf(p.lineno, "invalid target filename for %s", p.srcName)
				p.dropSource()
				return true
			}
			p.startPatch(strings.TrimSpace(m[1]))
			p.state = stateHunkHead
			return true
		}
		if strings.HasPrefix(l.Text, "--- ") {
			p.note("skipping false patch for %s", p.srcName)
			p.dropSource()
			return false
		}
		p.errorf(p.lineno, "no target filename for %s", p.srcName)
		p.dropSource()
		return false

	case stateHunkHead:
		if h, ok := parseHunkHeader(l.Text); ok {
			p.openHunk(h)
			return true
		}
		if len(p.current.Hunks) == 0 {
			p.errorf(p.lineno, "no hunks for %s", p.current.Source)
		}
		p.state = stateHeader
		return false

	case stateHunkBody:
		return p.body(l)

	case stateHunkDone:
		if strings.HasPrefix(l.Text, `\`) {
			if n := len(p.current.Hunks); n > 0 {
				markNoNewline(&p.current.Hunks[n-1])
			}
			return true
		}
		if reHunkHead.MatchString(l.Text) {
			p.state = stateHunkHead
		} else {
			p.state = stateHeader
		}
		return false

	case stateSkip:
		switch {
		case reHunkHead.MatchString(l.Text):
			p.state = stateHunkHead
			return false
		case strings.HasPrefix(l.Text, "--- "):
			p.state = stateHeader
			return false
		case l.Text == "" || strings.ContainsRune(" +-\\", rune(l.Text[0])):
			return true
		}
		p.state = stateHeader
		return false
	}
	return true
}

func (p *parser) body(l textLine) bool {
	h := p.hunk
	text := l.Text
	switch {
	case text == "" && p.srcSeen < h.LenSrc && p.tgtSeen < h.LenTgt:
		p.addLine(Line{Kind: lineBlank, EOL: l.EOL})
	case text != "" && (text[0] == ' ' || text[0] == '+' || text[0] == '-'):
		p.addLine(Line{Kind: LineKind(text[0]), Content: text[1:], EOL: l.EOL})
	case strings.HasPrefix(text, `\`):
		markNoNewline(h)
		return true
	default:
		p.errorf(p.lineno, "hunk %d for %s is short: %d/%d source and %d/%d target lines",
			len(p.current.Hunks)+1, p.current.Target, p.srcSeen, h.LenSrc, p.tgtSeen, h.LenTgt)
		p.closeHunk(true)
		p.state = stateSkip
		return false
	}

	if p.srcSeen > h.LenSrc || p.tgtSeen > h.LenTgt {
		p.errorf(p.lineno, "extra lines in hunk %d for %s", len(p.current.Hunks)+1, p.current.Target)
		p.closeHunk(true)
		p.state = stateSkip
		return true
	}
	if p.srcSeen == h.LenSrc && p.tgtSeen == h.LenTgt {
		p.closeHunk(false)
		p.state = stateHunkDone
	}
	return true
}

func (p *parser) addLine(line Line) {
	p.hunk.Lines = append(p.hunk.Lines, line)
	switch line.Kind {
	case LineAdd:
		p.tgtSeen++
	case LineRemove:
		p.srcSeen++
	default:
		p.srcSeen++
		p.tgtSeen++
	}
}

func markNoNewline(h *Hunk) {
	if n := len(h.Lines); n > 0 {
		h.Lines[n-1].EOL = EOLNone
	}
}

func (p *parser) dropSource() {
	if p.srcRaw != "" {
		p.header = append(p.header, p.srcRaw)
	}
	p.srcName, p.srcRaw = "", ""
	p.state = stateHeader
}

func (p *parser) openHunk(h Hunk) {
	p.hunk = &h
	p.srcSeen, p.tgtSeen = 0, 0
	p.state = stateHunkBody
	if h.LenSrc == 0 && h.LenTgt == 0 {
		p.closeHunk(false)
		p.state = stateHunkDone
	}
}

func (p *parser) closeHunk(invalid bool) {
	p.hunk.Invalid = invalid
	p.current.Hunks = append(p.current.Hunks, *p.hunk)
	p.hunk = nil
}

func (p *parser) startPatch(target string) {
	p.flushPatch()
	p.current = &Patch{
		Source: p.srcName,
		Target: target,
		Header: p.header,
	}
	p.header = nil
	p.srcName, p.srcRaw = "", ""
}

// flushPatch finishes the current entry: dialect detection and autofix run
// here, once every hunk of the entry is known.
func (p *parser) flushPatch() {
	if p.current == nil {
		return
	}
	patch := p.current
	p.current = nil

	patch.Type = detectDialect(patch.Header)
	if !p.dialectFixed && patch.Type != DialectPlain {
		p.ps.Dialect = patch.Type
		p.dialectFixed = true
	}
	if p.ps.Dialect == DialectHg && patch.Type == DialectGit {
		patch.Type = DialectHg
	}

	for _, fix := range autofixPipeline {
		fix(patch, len(p.ps.Items)+1, p)
	}
	p.ps.Items = append(p.ps.Items, patch)
}

func (p *parser) finish() {
	switch p.state {
	case stateTarget:
		p.errorf(p.lineno, "no target filename for %s", p.srcName)
		p.dropSource()
	case stateHunkHead:
		if len(p.current.Hunks) == 0 {
			p.errorf(p.lineno, "no hunks for %s", p.current.Source)
		}
	case stateHunkBody:
		p.errorf(p.lineno, "patch stream is incomplete: hunk %d for %s is truncated",
			len(p.current.Hunks)+1, p.current.Target)
		p.closeHunk(true)
	}
	p.flushPatch()

	if len(p.ps.Items) == 0 {
		p.errorf(0, "no patch data found")
		return
	}
	if leftover := strings.Join(p.header, ""); strings.TrimSpace(leftover) != "" {
		p.note("%d unparsed bytes left at the end of stream", len(leftover))
	}
}

func parseHunkHeader(text string) (Hunk, bool) {
	m := reHunkHead.FindStringSubmatch(text)
	if m == nil {
		return Hunk{}, false
	}
	nums := [4]int{0, 1, 0, 1}
	for i, s := range m[1:5] {
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return Hunk{}, false
		}
		nums[i] = n
	}
	return Hunk{
		StartSrc: nums[0],
		LenSrc:   nums[1],
		StartTgt: nums[2],
		LenTgt:   nums[3],
		Desc:     strings.TrimRight(strings.TrimPrefix(m[5], " "), " \t"),
	}, true
}
