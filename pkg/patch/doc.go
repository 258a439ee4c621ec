// Package patch parses unified diffs and applies or reverts them against a
// file tree.
//
// A PatchSet is built from text with FromString, FromFile or Parse. The
// parser understands the headers emitted by Subversion, Git and Mercurial,
// repairs common damage (absolute paths, parent references, context lines
// whose single space was stripped by an editor) and counts every repair as
// a warning. Structural problems are counted as errors; entries they touch
// are kept for inspection but never applied.
//
// Hunks are matched only at the line numbers they declare. Line terminators
// are tracked per line, so applying a set and reverting it restores the
// original bytes, including CRLF files and files without a final newline.
//
//	ps, err := patch.FromFile("fix.diff", patch.Options{})
//	if err != nil {
//		return err
//	}
//	if !ps.OK() {
//		return fmt.Errorf("fix.diff: %d errors", ps.Errors)
//	}
//	results, err := ps.Apply(ctx, patch.ApplyOptions{Root: dir, Strip: 1})
package patch
