package patch

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FileStat is the change magnitude of one entry.
type FileStat struct {
	Name       string `json:"name"`
	Insertions int    `json:"insertions"`
	Deletions  int    `json:"deletions"`
}

// Stats summarises a set. Bytes is the signed size change: the bytes of
// every added line minus those of every removed line, terminators included.
type Stats struct {
	Files      []FileStat `json:"files"`
	Insertions int        `json:"insertions"`
	Deletions  int        `json:"deletions"`
	Bytes      int        `json:"bytes"`
}

// Stats counts insertions, deletions and the byte delta per entry.
func (ps *PatchSet) Stats() Stats {
	var s Stats
	for _, p := range ps.Items {
		file := FileStat{Name: p.displayName()}
		for _, h := range p.Hunks {
			for _, l := range h.Lines {
				size := len(l.Content) + len(l.EOL.String())
				switch l.Kind {
				case LineAdd:
					file.Insertions++
					s.Bytes += size
				case LineRemove:
					file.Deletions++
					s.Bytes -= size
				}
			}
		}
		s.Insertions += file.Insertions
		s.Deletions += file.Deletions
		s.Files = append(s.Files, file)
	}
	return s
}

// Diffstat renders the set the way GNU diffstat does.
func (ps *PatchSet) Diffstat() string {
	return ps.Stats().Format(nil)
}

// BarStyle decorates the insertion and deletion halves of a histogram bar.
type BarStyle func(plus, minus string) string

// Format renders one line per file followed by the summary line. The
// summary has no trailing newline. A nil style leaves the bars plain.
func (s Stats) Format(style BarStyle) string {
	nameWidth, maxdiff := 0, 0
	for _, f := range s.Files {
		nameWidth = max(nameWidth, utf8.RuneCountInString(f.Name))
		maxdiff = max(maxdiff, f.Insertions+f.Deletions)
	}
	statWidth := len(strconv.Itoa(maxdiff))
	// " name | stat bar\n" without the name, stat and bar.
	histWidth := max(2, 80-(nameWidth+statWidth+6))

	var b strings.Builder
	for _, f := range s.Files {
		ins, del := f.Insertions, f.Deletions
		if maxdiff >= histWidth {
			ins = scaleBar(f.Insertions, maxdiff, histWidth)
			del = scaleBar(f.Deletions, maxdiff, histWidth)
		}
		plus, minus := strings.Repeat("+", ins), strings.Repeat("-", del)
		bar := plus + minus
		if style != nil {
			bar = style(plus, minus)
		}
		fmt.Fprintf(&b, " %-*s | %*d %s\n", nameWidth, f.Name, statWidth, f.Insertions+f.Deletions, bar)
	}
	fmt.Fprintf(&b, " %d files changed, %d insertions(+), %d deletions(-), %+d bytes",
		len(s.Files), s.Insertions, s.Deletions, s.Bytes)
	return b.String()
}

// scaleBar fits count into width columns relative to maxdiff. Nonzero
// counts always get at least one column.
func scaleBar(count, maxdiff, width int) int {
	ratio := float64(count) / float64(maxdiff) * float64(width)
	if ratio > 0 && ratio < 1 {
		return 1
	}
	return int(ratio)
}
