package patch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	mainC = "#include <stdio.h>\n\nint main(void)\n{\n\tputs(\"hi\");\n\tputs(\"there\");\n\t/* compute */\n\tint x = 1;\n\treturn 0;\n}\n"
	utilH = "#pragma once\nvoid helper(void);\n"

	patchedMainC = "#include <stdio.h>\n#include <stdlib.h>\n\nint main(void)\n{\n\tputs(\"hi\");\n\tputs(\"there\");\n\t/* compute */\n\tint x = 1;\n\treturn x;\n}\n"
	patchedUtilH = "#pragma once\nint util(void);\nvoid helper(void);\n"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create fixture dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
	}
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(content)
}

func TestApplyAndRevertSVN(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"main.c": mainC, "util.h": utilH})
	ps := loadFixture(t, "svn.diff")
	ctx := context.Background()

	results, err := ps.Apply(ctx, ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Equal(t, []Result{{Status: "M", Path: "main.c"}, {Status: "M", Path: "util.h"}}, results)
	require.Equal(t, patchedMainC, readFile(t, dir, "main.c"))
	require.Equal(t, patchedUtilH, readFile(t, dir, "util.h"))

	results, err = ps.Revert(ctx, ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Equal(t, []Result{{Status: "M", Path: "util.h"}, {Status: "M", Path: "main.c"}}, results)
	require.Equal(t, mainC, readFile(t, dir, "main.c"))
	require.Equal(t, utilH, readFile(t, dir, "util.h"))
}

func TestApplyAndRevertGitCreationAndDeletion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	app := "package app\n\nconst Version = \"1.0\"\n"
	writeFiles(t, dir, map[string]string{"src/app.go": app, "old.txt": "obsolete\n"})
	ps := loadFixture(t, "git.diff")
	ctx := context.Background()

	results, err := ps.Apply(ctx, ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Equal(t, []Result{
		{Status: "M", Path: "src/app.go"},
		{Status: "A", Path: "NOTES"},
		{Status: "D", Path: "old.txt"},
	}, results)
	require.Equal(t, "package app\n\nconst Version = \"1.1\"\n", readFile(t, dir, "src/app.go"))
	require.Equal(t, "first note\nsecond note\n", readFile(t, dir, "NOTES"))
	_, err = os.Stat(filepath.Join(dir, "old.txt"))
	require.True(t, errors.Is(err, fs.ErrNotExist), "old.txt should be gone, stat error: %v", err)

	results, err = ps.Revert(ctx, ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Equal(t, []Result{
		{Status: "A", Path: "old.txt"},
		{Status: "D", Path: "NOTES"},
		{Status: "M", Path: "src/app.go"},
	}, results)
	require.Equal(t, app, readFile(t, dir, "src/app.go"))
	require.Equal(t, "obsolete\n", readFile(t, dir, "old.txt"))
	_, err = os.Stat(filepath.Join(dir, "NOTES"))
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestInverseUndoesEntriesLastToFirst(t *testing.T) {
	t.Parallel()

	ps := loadFixture(t, "git.diff")
	inv := ps.Inverse()
	require.Equal(t, ps.Len(), inv.Len())
	for i, p := range ps.Items {
		undo := inv.Items[len(inv.Items)-1-i]
		require.Equal(t, p.Source, undo.Target)
		require.Equal(t, p.Target, undo.Source)
	}
	require.Equal(t, "src/app.go", ps.Items[0].Source, "inverse must not reorder the receiver")
}

func TestApplyKeepsFileLineEndings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	original := "one\r\ntwo\r\nthree\r\n"
	writeFiles(t, dir, map[string]string{"f.txt": original})

	ps := FromString("--- f.txt\n+++ f.txt\n@@ -1,3 +1,4 @@\n one\n-two\n+TWO\n+2b\n three\n", Options{})
	require.True(t, ps.OK(), "%v", ps.Diagnostics)

	_, err := ps.Apply(context.Background(), ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Equal(t, "one\r\nTWO\r\n2b\r\nthree\r\n", readFile(t, dir, "f.txt"))

	_, err = ps.Revert(context.Background(), ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Equal(t, original, readFile(t, dir, "f.txt"))
}

func TestApplyCRLFPatchToMixedFileUsesPatchEndings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"f.txt": "a\r\nb\nc\n"})

	ps := FromString("--- f.txt\r\n+++ f.txt\r\n@@ -1,2 +1,3 @@\r\n a\r\n+new\r\n b\r\n", Options{})
	require.True(t, ps.OK(), "%v", ps.Diagnostics)

	_, err := ps.Apply(context.Background(), ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Equal(t, "a\r\nnew\r\nb\nc\n", readFile(t, dir, "f.txt"))
}

func TestRevertRestoresMixedLineEndings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	original := "a\r\nb\n"
	writeFiles(t, dir, map[string]string{"f.txt": original})

	ps := FromString("--- f.txt\n+++ f.txt\n@@ -1,2 +1,2 @@\n-a\r\n+c\n b\n", Options{})
	require.True(t, ps.OK(), "%v", ps.Diagnostics)

	_, err := ps.Apply(context.Background(), ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Equal(t, "c\nb\n", readFile(t, dir, "f.txt"))

	_, err = ps.Revert(context.Background(), ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Equal(t, original, readFile(t, dir, "f.txt"))
}

func TestApplyWithoutTrailingNewline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "one\ntwo"})

	text := "--- a.txt\n+++ a.txt\n@@ -1,2 +1,2 @@\n one\n-two\n\\ No newline at end of file\n+three\n\\ No newline at end of file\n"
	ps := FromString(text, Options{})
	require.True(t, ps.OK(), "%v", ps.Diagnostics)

	_, err := ps.Apply(context.Background(), ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Equal(t, "one\nthree", readFile(t, dir, "a.txt"))

	_, err = ps.Revert(context.Background(), ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Equal(t, "one\ntwo", readFile(t, dir, "a.txt"))
}

func TestApplyMismatchLeavesFileUntouched(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	original := "one\nzwei\nthree\n"
	writeFiles(t, dir, map[string]string{"f.txt": original})

	ps := FromString("--- f.txt\n+++ f.txt\n@@ -1,3 +1,3 @@\n one\n-two\n+TWO\n three\n", Options{})
	_, err := ps.Apply(context.Background(), ApplyOptions{Root: dir})

	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, CodeHunkMismatch, perr.Code)
	require.Equal(t, "f.txt", perr.RelativePath)
	require.NotNil(t, perr.FailedHunk)
	require.Equal(t, 2, perr.FailedHunk.Line)
	require.Equal(t, "two", perr.FailedHunk.Expected)
	require.Equal(t, "zwei", perr.FailedHunk.Actual)
	require.Equal(t, []HunkStatus{{Number: 1, Status: "no-match"}}, perr.HunkStatuses)
	require.Equal(t, original, readFile(t, dir, "f.txt"))
}

func TestApplyMatchesOnlyAtDeclaredOffsets(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	original := "header\none\ntwo\nthree\n"
	writeFiles(t, dir, map[string]string{"f.txt": original})

	// The same lines exist one line further down.
	ps := FromString("--- f.txt\n+++ f.txt\n@@ -1,3 +1,3 @@\n one\n-two\n+TWO\n three\n", Options{})
	_, err := ps.Apply(context.Background(), ApplyOptions{Root: dir})
	require.Error(t, err)
	require.Equal(t, original, readFile(t, dir, "f.txt"))
}

func TestApplyIsNotTransactional(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "a\n", "b.txt": "unexpected\n"})

	ps := FromString("--- a.txt\n+++ a.txt\n@@ -1 +1 @@\n-a\n+A\n--- b.txt\n+++ b.txt\n@@ -1 +1 @@\n-b\n+B\n", Options{})
	require.True(t, ps.OK(), "%v", ps.Diagnostics)

	results, err := ps.Apply(context.Background(), ApplyOptions{Root: dir})
	require.Error(t, err)
	require.Equal(t, []Result{{Status: "M", Path: "a.txt"}}, results)
	require.Equal(t, "A\n", readFile(t, dir, "a.txt"))
	require.Equal(t, "unexpected\n", readFile(t, dir, "b.txt"))
}

func TestApplyStripAndRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"dir/file.txt": "before\n"})
	ps := FromString("--- nasty/prefix/dir/file.txt\n+++ nasty/prefix/dir/file.txt\n@@ -1 +1 @@\n-before\n+after\n", Options{})

	results, err := ps.Apply(context.Background(), ApplyOptions{Root: dir, Strip: 2})
	require.NoError(t, err)
	require.Equal(t, []Result{{Status: "M", Path: "dir/file.txt"}}, results)
	require.Equal(t, "after\n", readFile(t, dir, "dir/file.txt"))

	_, err = ps.Apply(context.Background(), ApplyOptions{Root: dir, Strip: 9})
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, CodeStripLevel, perr.Code)
	require.ErrorIs(t, err, ErrStripLevel)
}

func TestApplyFallsBackToUnprefixedNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"file.txt": "x\n"})
	ps := FromString("--- a/file.txt\n+++ b/file.txt\n@@ -1 +1 @@\n-x\n+y\n", Options{})
	require.Equal(t, DialectPlain, ps.Dialect)

	results, err := ps.Apply(context.Background(), ApplyOptions{Root: dir})
	require.NoError(t, err)
	require.Equal(t, []Result{{Status: "M", Path: "file.txt"}}, results)
	require.Equal(t, "y\n", readFile(t, dir, "file.txt"))
}

func TestApplyKeepsRewrittenPathsUnderRoot(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	root := filepath.Join(parent, "work")
	writeFiles(t, root, map[string]string{"etc/passwd": "root:x:0:0\n"})

	text := "--- /etc/passwd\n+++ /etc/passwd\n@@ -1 +1 @@\n-root:x:0:0\n+root:x:0:0:patched\n" +
		"--- /dev/null\n+++ ../../outside/x.txt\n@@ -0,0 +1 @@\n+hello\n"
	ps := FromString(text, Options{})
	require.True(t, ps.OK(), "%v", ps.Diagnostics)
	require.Equal(t, 3, ps.Warnings)

	results, err := ps.Apply(context.Background(), ApplyOptions{Root: root})
	require.NoError(t, err)
	require.Equal(t, []Result{{Status: "M", Path: "etc/passwd"}, {Status: "A", Path: "outside/x.txt"}}, results)
	require.Equal(t, "root:x:0:0:patched\n", readFile(t, root, "etc/passwd"))
	require.Equal(t, "hello\n", readFile(t, root, "outside/x.txt"))

	for _, escaped := range []string{"outside", "x.txt", filepath.Join("..", "outside")} {
		_, err := os.Stat(filepath.Join(parent, escaped))
		require.True(t, os.IsNotExist(err), "%s written above the root", escaped)
	}
}

func TestApplyRefusals(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		ps := FromString("--- gone.txt\n+++ gone.txt\n@@ -1 +1 @@\n-a\n+b\n", Options{})
		_, err := ps.Apply(context.Background(), ApplyOptions{Root: t.TempDir()})
		var perr *Error
		require.ErrorAs(t, err, &perr)
		require.Equal(t, CodeFileNotFound, perr.Code)
		require.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("creation over existing file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"new.txt": "already here\n"})
		ps := FromString("--- /dev/null\n+++ new.txt\n@@ -0,0 +1 @@\n+fresh\n", Options{})
		_, err := ps.Apply(context.Background(), ApplyOptions{Root: dir})
		var perr *Error
		require.ErrorAs(t, err, &perr)
		require.Equal(t, CodeFileExists, perr.Code)
		require.Equal(t, "already here\n", readFile(t, dir, "new.txt"))
	})

	t.Run("deletion with extra content", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"old.txt": "obsolete\nkeep me\n"})
		ps := FromString("--- old.txt\n+++ /dev/null\n@@ -1 +0,0 @@\n-obsolete\n", Options{})
		_, err := ps.Apply(context.Background(), ApplyOptions{Root: dir})
		var perr *Error
		require.ErrorAs(t, err, &perr)
		require.Equal(t, CodeHunkMismatch, perr.Code)
		require.Equal(t, "obsolete\nkeep me\n", readFile(t, dir, "old.txt"))
	})

	t.Run("invalid hunk", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"a.txt": "one\ntwo\nthree\n"})
		ps := FromString("--- a.txt\n+++ a.txt\n@@ -1,3 +1,3 @@\n one\n-two\n+TWO\n", Options{})
		require.False(t, ps.OK())
		_, err := ps.Apply(context.Background(), ApplyOptions{Root: dir})
		var perr *Error
		require.ErrorAs(t, err, &perr)
		require.Equal(t, CodeInvalidHunk, perr.Code)
		require.Equal(t, "one\ntwo\nthree\n", readFile(t, dir, "a.txt"))
	})

	t.Run("path outside root", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		ps := FromString("--- a.txt\n+++ a.txt\n@@ -1 +1 @@\n-a\n+b\n", Options{})
		ps.Items[0].Source = "../outside.txt"
		ps.Items[0].Target = "../outside.txt"
		_, err := ps.Apply(context.Background(), ApplyOptions{Root: dir})
		var perr *Error
		require.ErrorAs(t, err, &perr)
		require.Equal(t, CodePathEscapesRoot, perr.Code)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ps := FromString("--- a.txt\n+++ a.txt\n@@ -1 +1 @@\n-a\n+b\n", Options{})
		_, err := ps.Apply(ctx, ApplyOptions{Root: t.TempDir()})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestApplyPreservesFileMode(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(path, []byte("echo a\n"), 0o755))
	require.NoError(t, os.Chmod(path, 0o755))

	ps := FromString("--- run.sh\n+++ run.sh\n@@ -1 +1 @@\n-echo a\n+echo b\n", Options{})
	_, err := ps.Apply(context.Background(), ApplyOptions{Root: dir})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, fs.FileMode(0o755), info.Mode().Perm())
}
