package patch

import (
	"fmt"
	"io"
	"strings"
)

const noNewlineMarker = `\ No newline at end of file`

// String re-emits the set as unified diff text. Paths are written as they
// stand after autofix, so parsing the output again repairs nothing.
func (ps *PatchSet) String() string {
	var b strings.Builder
	for _, p := range ps.Items {
		writePatch(&b, p)
	}
	return b.String()
}

// WriteTo writes String() to w.
func (ps *PatchSet) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, ps.String())
	return int64(n), err
}

func writePatch(b *strings.Builder, p *Patch) {
	nl := structuralEOL(p)
	for _, h := range p.Header {
		b.WriteString(h)
	}

	src, tgt := p.Source, p.Target
	if p.vcsPrefixed {
		if src != DevNull {
			src = "a/" + src
		}
		if tgt != DevNull {
			tgt = "b/" + tgt
		}
	}
	b.WriteString("--- " + src + nl)
	b.WriteString("+++ " + tgt + nl)

	for _, h := range p.Hunks {
		fmt.Fprintf(b, "@@ -%d,%d +%d,%d @@", h.StartSrc, h.LenSrc, h.StartTgt, h.LenTgt)
		if h.Desc != "" {
			b.WriteString(" " + h.Desc)
		}
		b.WriteString(nl)
		for _, l := range h.Lines {
			kind := l.Kind
			if kind == lineBlank {
				kind = LineContext
			}
			b.WriteByte(byte(kind))
			b.WriteString(l.Content)
			if l.EOL == EOLNone {
				b.WriteString(nl + noNewlineMarker + nl)
				continue
			}
			b.WriteString(l.EOL.String())
		}
	}
}

// structuralEOL picks the terminator for the lines the serializer makes up:
// the one of the last header line, else the one of the first body line.
func structuralEOL(p *Patch) string {
	if n := len(p.Header); n > 0 {
		if strings.HasSuffix(p.Header[n-1], "\r\n") {
			return "\r\n"
		}
		return "\n"
	}
	for _, h := range p.Hunks {
		for _, l := range h.Lines {
			if l.EOL != EOLNone {
				return l.EOL.String()
			}
		}
	}
	return "\n"
}
