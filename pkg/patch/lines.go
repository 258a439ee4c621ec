package patch

import "strings"

// textLine is a line of input split off with its terminator recorded.
type textLine struct {
	Text string
	EOL  EOL
}

func (l textLine) raw() string {
	return l.Text + l.EOL.String()
}

// splitLines splits content on "\n", tagging each line with the
// terminator it had. A trailing fragment without terminator is kept as a
// line tagged EOLNone; an empty input yields no lines.
func splitLines(content string) []textLine {
	var out []textLine
	for len(content) > 0 {
		idx := strings.IndexByte(content, '\n')
		if idx < 0 {
			out = append(out, textLine{Text: content, EOL: EOLNone})
			break
		}
		text := content[:idx]
		eol := EOLLF
		if strings.HasSuffix(text, "\r") {
			text = text[:len(text)-1]
			eol = EOLCRLF
		}
		out = append(out, textLine{Text: text, EOL: eol})
		content = content[idx+1:]
	}
	return out
}

func joinLines(lines []textLine) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.Text)
		b.WriteString(l.EOL.String())
	}
	return b.String()
}

// dominantEOL returns the terminator used by every terminated line, or
// ok=false when the lines mix styles or none is terminated.
func dominantEOL(lines []textLine) (EOL, bool) {
	seen := EOLNone
	for _, l := range lines {
		if l.EOL == EOLNone {
			continue
		}
		if seen == EOLNone {
			seen = l.EOL
			continue
		}
		if seen != l.EOL {
			return EOLNone, false
		}
	}
	return seen, seen != EOLNone
}

// sameContent compares two lines ignoring a stray carriage return left on
// an unterminated last line.
func sameContent(a, b string) bool {
	return strings.TrimSuffix(a, "\r") == strings.TrimSuffix(b, "\r")
}
