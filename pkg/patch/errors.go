package patch

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Severity tags a parse diagnostic.
type Severity string

const (
	// SeverityWarning marks a problem the parser corrected on its own.
	SeverityWarning Severity = "warning"
	// SeverityError marks a structural problem; the affected entry must
	// not be used.
	SeverityError Severity = "error"
)

// Diagnostic is one counted parse problem.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	// Line is the 1-based line number in the patch text, 0 when the
	// problem is not tied to a line.
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", d.Severity, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// Error codes reported by Apply, Revert and Preview.
const (
	CodeHunkMismatch    = "HUNK_MISMATCH"
	CodeInvalidHunk     = "INVALID_HUNK"
	CodeFileNotFound    = "FILE_NOT_FOUND"
	CodeFileExists      = "FILE_EXISTS"
	CodeNotAFile        = "NOT_A_FILE"
	CodePathEscapesRoot = "PATH_ESCAPES_ROOT"
	CodeStripLevel      = "STRIP_LEVEL"
	CodeIO              = "IO"
)

// HunkStatus tracks how a hunk fared when processing a patch.
type HunkStatus struct {
	Number int    `json:"number"`
	Status string `json:"status"`
}

// FailedHunk stores the hunk that could not be applied.
type FailedHunk struct {
	Number int  `json:"number"`
	Hunk   Hunk `json:"-"`
	// Line is the 1-based file line where the mismatch was found.
	Line     int    `json:"line"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Error represents a failure while applying a patch entry. It satisfies the
// error interface so it can be returned directly from Apply and friends.
type Error struct {
	Message      string
	Code         string
	RelativePath string
	HunkStatuses []HunkStatus
	FailedHunk   *FailedHunk
	Err          error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "patch error"
}

// Unwrap exposes the underlying cause, typically an I/O error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code, rel, format string, args ...any) *Error {
	return &Error{Code: code, RelativePath: rel, Message: fmt.Sprintf(format, args...)}
}

func ioError(rel string, err error) *Error {
	return &Error{Code: CodeIO, RelativePath: rel, Message: fmt.Sprintf("%s: %v", rel, err), Err: err}
}

func describeHunkStatuses(statuses []HunkStatus) string {
	if len(statuses) == 0 {
		return ""
	}
	var applied []string
	var failed string
	for _, status := range statuses {
		if status.Status == "applied" {
			applied = append(applied, fmt.Sprintf("%d", status.Number))
			continue
		}
		if failed == "" {
			failed = fmt.Sprintf("No match for hunk %d.", status.Number)
		}
	}

	parts := make([]string, 0, 2)
	if len(applied) > 0 {
		parts = append(parts, fmt.Sprintf("Hunks applied: %s.", strings.Join(applied, ", ")))
	}
	if failed != "" {
		parts = append(parts, failed)
	}
	return strings.Join(parts, "\n")
}

// inlineDiff renders the character level difference between expected and
// actual as "[-removed-]{+inserted+}" markup.
func inlineDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

// FormatError renders Error values into a human readable message suitable for
// surfacing to end users.
func FormatError(err *Error) string {
	if err == nil {
		return "Unknown error occurred."
	}
	message := err.Error()
	if err.Code != CodeHunkMismatch {
		return message
	}

	parts := []string{message}
	if summary := describeHunkStatuses(err.HunkStatuses); summary != "" {
		parts = append(parts, "", summary)
	}
	if fh := err.FailedHunk; fh != nil {
		parts = append(parts, "", fmt.Sprintf("Offending hunk (line %d of %s):", fh.Line, displayPath(err.RelativePath)))
		parts = append(parts, "  expected: "+fh.Expected, "  actual  : "+fh.Actual)
		if fh.Expected != fh.Actual {
			parts = append(parts, "  diff    : "+inlineDiff(fh.Expected, fh.Actual))
		}
	}
	return strings.Join(parts, "\n")
}

func displayPath(rel string) string {
	if rel == "" {
		return "unknown file"
	}
	if strings.HasPrefix(rel, "./") || strings.HasPrefix(rel, "/") {
		return rel
	}
	return "./" + rel
}
