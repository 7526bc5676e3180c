// Package files implements the per-workload file service: path-validated
// directory listing, read/write, rename, delete, and archive
// compress/decompress.
package files

import (
	"archive/tar"
	"archive/zip"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	kgzip "github.com/klauspost/compress/gzip"

	"github.com/nexus-wings/wings/pkg/apierr"
)

// MaxFileSize bounds how large a file ReadFile will return inline.
const MaxFileSize = 10 * 1024 * 1024

// init swaps archive/zip's deflate codec for klauspost/compress's faster
// implementation; the container format stays standard zip.
func init() {
	zip.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
	zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
}

// Entry describes one directory entry returned by ListDirectory.
type Entry struct {
	Name        string    `json:"name"`
	IsDirectory bool      `json:"is_directory"`
	Size        int64     `json:"size"`
	Modified    time.Time `json:"modified"`
	MimeType    string    `json:"mime_type"`
}

// ValidatePath resolves requestedPath against root and rejects any
// result that escapes root, including via symlinks or ".." segments in
// a path that does not yet exist. Such a path, including one under
// directories that do not exist yet, is checked against its nearest
// existing ancestor.
func ValidatePath(root, requestedPath string) (string, error) {
	canonicalRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", apierr.IO("resolve server root", err)
	}

	clean := strings.TrimPrefix(requestedPath, "/")
	joined := filepath.Join(canonicalRoot, clean)

	if _, err := os.Lstat(joined); err == nil {
		resolved, err := filepath.EvalSymlinks(joined)
		if err != nil {
			return "", apierr.IO("resolve path", err)
		}
		if !withinRoot(canonicalRoot, resolved) {
			return "", apierr.PathTraversal("path escapes server root")
		}
		return resolved, nil
	}

	ancestor := filepath.Dir(joined)
	for {
		if _, err := os.Lstat(ancestor); err == nil {
			break
		}
		if filepath.Dir(ancestor) == ancestor {
			return "", apierr.PathTraversal("parent directory does not exist")
		}
		ancestor = filepath.Dir(ancestor)
	}
	parent, err := filepath.EvalSymlinks(ancestor)
	if err != nil {
		return "", apierr.PathTraversal("parent directory does not exist")
	}
	if !withinRoot(canonicalRoot, parent) {
		return "", apierr.PathTraversal("path escapes server root")
	}
	rest, _ := filepath.Rel(ancestor, joined)
	return filepath.Join(parent, rest), nil
}

func withinRoot(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// ListDirectory returns path's entries, directories first, then
// case-insensitive name order.
func ListDirectory(path string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, apierr.IO("read directory", err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			return nil, apierr.IO("stat directory entry", err)
		}
		mimeType := "directory"
		if !info.IsDir() {
			mimeType = mimeTypeFor(de.Name())
		}
		entries = append(entries, Entry{
			Name:        de.Name(),
			IsDirectory: info.IsDir(),
			Size:        info.Size(),
			Modified:    info.ModTime().UTC(),
			MimeType:    mimeType,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDirectory != entries[j].IsDirectory {
			return entries[i].IsDirectory
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

func mimeTypeFor(name string) string {
	t := mime.TypeByExtension(filepath.Ext(name))
	if t == "" {
		return "application/octet-stream"
	}
	return t
}

// ReadFile returns path's contents, rejecting anything over MaxFileSize.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apierr.IO("stat file", err)
	}
	if info.Size() > MaxFileSize {
		return nil, apierr.PayloadTooLarge("file exceeds maximum readable size")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apierr.IO("read file", err)
	}
	return data, nil
}

// WriteFile writes content to path, creating parent directories as needed.
func WriteFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apierr.IO("create parent directory", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return apierr.IO("write file", err)
	}
	return nil
}

// CreateDirectory makes path and any missing parents.
func CreateDirectory(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return apierr.IO("create directory", err)
	}
	return nil
}

// RenameEntry moves from to to.
func RenameEntry(from, to string) error {
	if err := os.Rename(from, to); err != nil {
		return apierr.IO("rename entry", err)
	}
	return nil
}

// DeleteEntries removes each of paths, recursively for directories.
func DeleteEntries(paths []string) error {
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			return apierr.IO("delete entry", err)
		}
	}
	return nil
}

// Compress writes a zip archive of paths to dest.
func Compress(paths []string, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return apierr.IO("create archive", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			zw.Close()
			return apierr.IO("stat archive member", err)
		}
		base := filepath.Dir(p)
		if info.IsDir() {
			if err := addDirToZip(zw, p, base); err != nil {
				zw.Close()
				return err
			}
			continue
		}
		if err := addFileToZip(zw, p, filepath.Base(p)); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return apierr.IO("finalize archive", err)
	}
	return nil
}

func addDirToZip(zw *zip.Writer, root, base string) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		if info.IsDir() {
			_, err := zw.Create(rel + "/")
			return err
		}
		return addFileToZip(zw, p, rel)
	})
}

func addFileToZip(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return apierr.IO("open archive member", err)
	}
	defer f.Close()

	w, err := zw.Create(filepath.ToSlash(name))
	if err != nil {
		return apierr.IO("add archive member", err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return apierr.IO("write archive member", err)
	}
	return nil
}

// Decompress extracts archive into dest, dispatching on archive's
// extension: .zip via archive/zip, .gz/.tgz via gzip+tar.
func Decompress(archive, dest string) error {
	switch ext := strings.ToLower(filepath.Ext(archive)); ext {
	case ".zip":
		return decompressZip(archive, dest)
	case ".gz", ".tgz":
		return decompressTarGz(archive, dest)
	default:
		return apierr.Config("unsupported archive format " + ext)
	}
}

func decompressZip(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return apierr.IO("open archive", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if !withinRoot(dest, target) {
			return apierr.PathTraversal("archive entry escapes destination")
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return apierr.IO("create archive directory", err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return apierr.IO("create archive parent", err)
		}
		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return apierr.IO("open archive entry", err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
	if err != nil {
		return apierr.IO("create extracted file", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return apierr.IO("write extracted file", err)
	}
	return nil
}

func decompressTarGz(archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return apierr.IO("open archive", err)
	}
	defer f.Close()

	gz, err := kgzip.NewReader(f)
	if err != nil {
		return apierr.IO("open gzip stream", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return apierr.IO("read tar entry", err)
		}
		target := filepath.Join(dest, hdr.Name)
		if !withinRoot(dest, target) {
			return apierr.PathTraversal("archive entry escapes destination")
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return apierr.IO("create archive directory", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return apierr.IO("create archive parent", err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return apierr.IO("create extracted file", err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return apierr.IO("write extracted file", err)
			}
			out.Close()
		}
	}
}
