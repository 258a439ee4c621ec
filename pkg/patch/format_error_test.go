package patch

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestDescribeHunkStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		statuses []HunkStatus
		want     string
	}{
		{
			name: "empty",
			want: "",
		},
		{
			name:     "only applied",
			statuses: []HunkStatus{{Number: 1, Status: "applied"}, {Number: 2, Status: "applied"}},
			want:     "Hunks applied: 1, 2.",
		},
		{
			name:     "mixed",
			statuses: []HunkStatus{{Number: 1, Status: "applied"}, {Number: 3, Status: "no-match"}},
			want:     "Hunks applied: 1.\nNo match for hunk 3.",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := describeHunkStatuses(tc.statuses); got != tc.want {
				t.Fatalf("describeHunkStatuses() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatErrorForHunkMismatch(t *testing.T) {
	t.Parallel()

	err := &Error{
		Message:      "hunk 2 doesn't match src/app.c at line 9",
		Code:         CodeHunkMismatch,
		RelativePath: "src/app.c",
		HunkStatuses: []HunkStatus{{Number: 1, Status: "applied"}, {Number: 2, Status: "no-match"}},
		FailedHunk: &FailedHunk{
			Number:   2,
			Line:     9,
			Expected: "return 0;",
			Actual:   "return 1;",
		},
	}

	got := FormatError(err)
	if !containsAll(got, []string{
		"hunk 2 doesn't match src/app.c at line 9",
		"Hunks applied: 1.",
		"No match for hunk 2.",
		"Offending hunk (line 9 of ./src/app.c):",
		"  expected: return 0;",
		"  actual  : return 1;",
		"  diff    : return [-0-]{+1+};",
	}) {
		t.Fatalf("unexpected formatted output:\n%s", got)
	}
}

func TestFormatErrorForUnknown(t *testing.T) {
	t.Parallel()

	if got := FormatError(nil); got != "Unknown error occurred." {
		t.Fatalf("unexpected message for nil error: %q", got)
	}

	err := &Error{Message: "custom failure", Code: CodeFileExists}
	if got := FormatError(err); got != "custom failure" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := &Error{Code: CodeFileNotFound, Err: fs.ErrNotExist}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected errors.Is to see the cause")
	}
	if got := err.Error(); got != fs.ErrNotExist.Error() {
		t.Fatalf("Error() = %q", got)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
