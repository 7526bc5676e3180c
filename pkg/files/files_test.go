package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-wings/wings/pkg/apierr"
)

func TestValidatePathRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	_, err := ValidatePath(root, "../../etc/passwd")
	require.Error(t, err)
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindPathTraversal, e.Kind)
}

func TestValidatePathAcceptsExistingFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "test.txt"), []byte("hi"), 0o644))

	resolved, err := ValidatePath(root, "test.txt")
	require.NoError(t, err)
	assert.Equal(t, "test.txt", filepath.Base(resolved))
}

func TestValidatePathAcceptsNewFileInExistingDir(t *testing.T) {
	root := t.TempDir()
	resolved, err := ValidatePath(root, "new.txt")
	require.NoError(t, err)
	assert.Equal(t, "new.txt", filepath.Base(resolved))
}

func TestListDirectoryOrdersDirectoriesFirst(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "file1.txt"), []byte("content"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "file2.log"), []byte("data"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "subdir"), 0o755))

	entries, err := ListDirectory(root)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].IsDirectory)
	assert.Equal(t, "subdir", entries[0].Name)
}

func TestWriteFileThenReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	require.NoError(t, WriteFile(path, []byte("hello world")))

	content, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
}

func TestReadFileRejectsOversized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, MaxFileSize+1), 0o644))

	_, err := ReadFile(path)
	require.Error(t, err)
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindPayloadTooLarge, e.Kind)
}

func TestCreateDirectoryMakesParents(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a", "b", "c")
	require.NoError(t, CreateDirectory(target))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCompressThenDecompressRoundTrips(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("one"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("two"), 0o644))

	archive := filepath.Join(t.TempDir(), "out.zip")
	require.NoError(t, Compress([]string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "sub"),
	}, archive))

	dest := t.TempDir()
	require.NoError(t, Decompress(archive, dest))

	content, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(content))

	content, err = os.ReadFile(filepath.Join(dest, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(content))
}

func TestDeleteEntriesRemovesDirsAndFiles(t *testing.T) {
	root := t.TempDir()
	filePath := filepath.Join(root, "f.txt")
	dirPath := filepath.Join(root, "d")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dirPath, "nested"), 0o755))

	require.NoError(t, DeleteEntries([]string{filePath, dirPath}))

	_, err := os.Stat(filePath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dirPath)
	assert.True(t, os.IsNotExist(err))
}
