package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-lesson.md", "b")
	writeFile(t, dir, "a-lesson.MD", "a")
	writeFile(t, dir, "notes.txt", "x")
	writeFile(t, dir, "wip.draft.md", "x")
	writeFile(t, dir, ".lessonsignore", "# drafts\n*.draft.md\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.md"), 0750))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0750))
	writeFile(t, filepath.Join(dir, "sub"), "deep.md", "not discovered")

	s := New(Options{IgnoreFile: ".lessonsignore"})
	paths, err := s.Discover(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "a-lesson.MD"),
		filepath.Join(dir, "b-lesson.md"),
	}, paths)
}

func TestDiscover_IgnoreDisabled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wip.draft.md", "x")
	writeFile(t, dir, ".lessonsignore", "*.draft.md\n")

	paths, err := New(Options{}).Discover(dir)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestDiscover_Symlink(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, t.TempDir(), "real.md", "x")
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "link.md")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing.md"), filepath.Join(dir, "dangling.md")))

	paths, err := New(Options{}).Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "link.md")}, paths)
}

func TestDiscover_MissingDirectory(t *testing.T) {
	paths, err := New(Options{}).Discover(filepath.Join(t.TempDir(), "nope"))

	require.NoError(t, err)
	assert.NotNil(t, paths)
	assert.Empty(t, paths)
}

func TestDiscover_NotADirectory(t *testing.T) {
	file := writeFile(t, t.TempDir(), "file.md", "x")

	_, err := New(Options{}).Discover(file)
	assert.Error(t, err)
}

func TestDiscover_CustomExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.lesson", "x")
	writeFile(t, dir, "two.md", "x")

	s := New(Options{Extension: "lesson"})
	paths, err := s.Discover(dir)
	require.NoError(t, err)

	assert.Equal(t, ".lesson", s.Extension())
	assert.Equal(t, []string{filepath.Join(dir, "one.lesson")}, paths)
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lesson.md", "# Title\n")

	doc, err := New(Options{}).Read(path)
	require.NoError(t, err)

	assert.Equal(t, path, doc.Path)
	assert.Equal(t, "# Title\n", doc.Content)
	assert.False(t, doc.ModTime.IsZero())
	assert.Equal(t, "lesson", doc.Stem())
}

func TestRead_TooLarge(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.md", strings.Repeat("x", 101))

	_, err := New(Options{MaxDocumentBytes: 100}).Read(path)
	assert.ErrorIs(t, err, ErrDocumentTooLarge)

	exact := writeFile(t, dir, "exact.md", strings.Repeat("x", 100))
	_, err = New(Options{MaxDocumentBytes: 100}).Read(exact)
	assert.NoError(t, err)
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := New(Options{}).Read(filepath.Join(dir, "missing.md"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = New(Options{}).Read(dir)
	assert.ErrorIs(t, err, ErrNotRegularFile)
}

func TestDiscover_DefaultIgnore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lesson.md", "x")
	writeFile(t, dir, "wip.draft.md", "x")
	writeFile(t, dir, "README.md", "x")

	s := New(Options{IgnoreFile: ".lessonsignore", DefaultIgnore: []string{"*.draft.md", "README.md"}})
	paths, err := s.Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "lesson.md")}, paths)

	// An ignore file replaces the defaults.
	writeFile(t, dir, ".lessonsignore", "README.md\n")
	paths, err = s.Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "lesson.md"),
		filepath.Join(dir, "wip.draft.md"),
	}, paths)
}
