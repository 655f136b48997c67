package fileutil

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lepinkainen/bookfinder/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "dune.epub", expected: "dune.epub"},
		{name: "spaces", input: "My Great Book.pdf", expected: "My_Great_Book.pdf"},
		{name: "path traversal", input: "../../etc/passwd", expected: "passwd"},
		{name: "windows path", input: `C:\Users\me\book.pdf`, expected: "book.pdf"},
		{name: "accents", input: "Les Misérables.epub", expected: "Les_Miserables.epub"},
		{name: "hidden file", input: ".bashrc", expected: "bashrc"},
		{name: "punctuation", input: "Title: Sub/Part?.pdf", expected: "Part.pdf"},
		{name: "only junk", input: "???", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeFilename(tc.input))
		})
	}
}

func TestFileExists(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("book.pdf", "%PDF-1.4")
	env.MkdirAll("covers")

	assert.True(t, FileExists(env.Path("book.pdf")))
	assert.False(t, FileExists(env.Path("missing.pdf")))
	assert.False(t, FileExists(env.Path("covers")), "directories are not files")
}

type exportedBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

func TestWriteJSONFile(t *testing.T) {
	env := testutil.NewTestEnv(t)
	path := filepath.Join(env.RootDir(), "out", "results.json")

	written, err := WriteJSONFile([]exportedBook{{Title: "Dune", Author: "Frank Herbert"}}, path, false)
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []exportedBook
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Dune", got[0].Title)

	written, err = WriteJSONFile([]exportedBook{}, path, false)
	require.NoError(t, err)
	assert.False(t, written, "existing file kept without overwrite")

	written, err = WriteJSONFile([]exportedBook{}, path, true)
	require.NoError(t, err)
	assert.True(t, written)
	assert.JSONEq(t, "[]", env.ReadFileString("out/results.json"))
}

func TestWriteJSONFile_InvalidData(t *testing.T) {
	env := testutil.NewTestEnv(t)

	_, err := WriteJSONFile(make(chan int), env.Path("bad.json"), true)
	require.ErrorContains(t, err, "encode")
	assert.False(t, env.FileExists("bad.json"))
}

func TestWriteFileAtomicLeavesNothingOnError(t *testing.T) {
	env := testutil.NewTestEnv(t)

	err := WriteFileAtomic(env.Path("out", "partial.json"), func(f *os.File) error {
		_, _ = f.WriteString("{")
		return errors.New("disk full")
	})
	require.ErrorContains(t, err, "disk full")
	assert.Empty(t, env.ListFiles("out"))
}
