package patch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreviewDoesNotTouchDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"main.c": mainC, "util.h": utilH})
	ps := loadFixture(t, "svn.diff")

	out, err := ps.Preview(context.Background(), ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Contains(t, out, "--- a/main.c\n+++ b/main.c\n")
	require.Contains(t, out, "+#include <stdlib.h>\n")
	require.Contains(t, out, "-\treturn 0;\n+\treturn x;\n")
	require.Contains(t, out, "--- a/util.h\n+++ b/util.h\n")

	require.Equal(t, mainC, readFile(t, dir, "main.c"))
	require.Equal(t, utilH, readFile(t, dir, "util.h"))
}

func TestPreviewCreationAndDeletion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"src/app.go": "package app\n\nconst Version = \"1.0\"\n",
		"old.txt":    "obsolete\n",
	})
	ps := loadFixture(t, "git.diff")

	out, err := ps.Preview(context.Background(), ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Contains(t, out, "--- /dev/null\n+++ b/NOTES\n")
	require.Contains(t, out, "+first note\n+second note\n")
	require.Contains(t, out, "--- a/old.txt\n+++ /dev/null\n")
	require.Contains(t, out, "-obsolete\n")
	require.Equal(t, "obsolete\n", readFile(t, dir, "old.txt"))
}

func TestPreviewReportsFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"main.c": "something else\n", "util.h": utilH})
	ps := loadFixture(t, "svn.diff")

	_, err := ps.Preview(context.Background(), ApplyOptions{Root: dir})
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, CodeHunkMismatch, perr.Code)
	require.Equal(t, "main.c", perr.RelativePath)
}
