package patch

import "strings"

// fixReporter receives the outcome of autofix passes. warn is counted as a
// PatchSet warning, note is only logged.
type fixReporter interface {
	warn(format string, args ...any)
	note(format string, args ...any)
}

// autofix is a single repair pass over a finished entry. index is the
// 1-based position of the entry in the set.
type autofix func(p *Patch, index int, r fixReporter)

// autofixPipeline runs in order; later passes rely on the paths being
// normalised by earlier ones.
var autofixPipeline = []autofix{
	stripVCSPrefixes,
	normalizePaths,
	stripAbsolutePaths,
	stripParentPaths,
	restoreBlankContext,
}

// stripVCSPrefixes drops the a/ and b/ prefixes git and Mercurial put on
// both names.
func stripVCSPrefixes(p *Patch, index int, r fixReporter) {
	if p.Type != DialectGit && p.Type != DialectHg {
		return
	}
	srcOK := p.Source == DevNull || strings.HasPrefix(p.Source, "a/")
	tgtOK := p.Target == DevNull || strings.HasPrefix(p.Target, "b/")
	if !srcOK || !tgtOK {
		r.note("entry %d: %s names without a/ b/ prefixes: %s, %s", index, p.Type, p.Source, p.Target)
		return
	}
	if p.Source != DevNull {
		p.Source = p.Source[2:]
	}
	if p.Target != DevNull {
		p.Target = p.Target[2:]
	}
	p.vcsPrefixed = true
}

func normalizePaths(p *Patch, _ int, _ fixReporter) {
	if p.Source != DevNull {
		p.Source = NormPath(p.Source)
	}
	if p.Target != DevNull {
		p.Target = NormPath(p.Target)
	}
}

func stripAbsolutePaths(p *Patch, index int, r fixReporter) {
	fix := func(side, name string) string {
		if name == DevNull || !IsAbs(name) {
			return name
		}
		fixed := NormPath(StripAbs(name))
		r.warn("entry %d: absolute %s path %q rewritten to %q", index, side, name, fixed)
		return fixed
	}
	p.Source = fix("source", p.Source)
	p.Target = fix("target", p.Target)
}

func stripParentPaths(p *Patch, index int, r fixReporter) {
	fix := func(side, name string) string {
		if name == DevNull {
			return name
		}
		fixed, changed := stripParents(name)
		if !changed {
			return name
		}
		r.warn("entry %d: parent references stripped from %s path %q", index, side, name)
		return fixed
	}
	p.Source = fix("source", p.Source)
	p.Target = fix("target", p.Target)
}

// restoreBlankContext turns empty body lines back into empty context lines.
// Editors that strip trailing whitespace reduce a context line holding a
// lone space to nothing.
func restoreBlankContext(p *Patch, index int, r fixReporter) {
	for hi := range p.Hunks {
		lines := p.Hunks[hi].Lines
		for li := range lines {
			if lines[li].Kind != lineBlank {
				continue
			}
			lines[li].Kind = LineContext
			r.warn("entry %d: hunk %d: empty line restored as context", index, hi+1)
		}
	}
}
