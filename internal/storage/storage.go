package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("file not found")
	ErrExists   = errors.New("file already exists")
	ErrBadName  = errors.New("invalid file name")
)

type FileInfo struct {
	Name       string
	FileType   string
	Size       int64
	ModifiedAt time.Time
}

// Allocator maps identities to isolated directories under BaseDir and keeps
// every file operation confined to a single root.
type Allocator struct {
	BaseDir string
}

// RootFor is deterministic: the same public id always maps to the same
// directory. It does not create the directory; that happens at registration
// or lazily on first listing.
func (a *Allocator) RootFor(publicID string) string {
	return filepath.Join(a.BaseDir, publicID)
}

// SanitizeName reduces an untrusted file name to a single safe path element.
// Directory components, traversal sequences and characters outside
// [A-Za-z0-9._-] are dropped, spaces become underscores, and names that end up
// empty or dot-only are rejected.
func SanitizeName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "", ErrBadName
	}
	return out, nil
}

// ResolveUploadName appends _1, _2, ... to the base name until the candidate
// does not exist in root. Deterministic for a given directory snapshot; under
// concurrent uploads Save retries with O_EXCL, so the probe is only a starting
// point.
func ResolveUploadName(root, desired string) string {
	ext := filepath.Ext(desired)
	base := strings.TrimSuffix(desired, ext)

	final := desired
	for counter := 1; ; counter++ {
		if _, err := os.Stat(filepath.Join(root, final)); errors.Is(err, fs.ErrNotExist) {
			return final
		}
		final = fmt.Sprintf("%s_%d%s", base, counter, ext)
	}
}

// Save sanitizes the desired name, picks a collision-free final name and
// writes the content. O_EXCL makes the create an atomic test-and-set, so two
// concurrent uploads of the same name from the same account get distinct
// files.
func (a *Allocator) Save(root, desired string, src io.Reader) (*FileInfo, error) {
	name, err := SanitizeName(desired)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	final := ResolveUploadName(root, name)
	for counter := 1; ; counter++ {
		f, err := os.OpenFile(filepath.Join(root, final), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			final = fmt.Sprintf("%s_%d%s", base, counter, ext)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create file: %w", err)
		}
		if _, err := io.Copy(f, src); err != nil {
			f.Close()
			os.Remove(filepath.Join(root, final))
			return nil, fmt.Errorf("write file: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("close file: %w", err)
		}
		break
	}

	stat, err := os.Stat(filepath.Join(root, final))
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	return &FileInfo{
		Name:       final,
		FileType:   ClassifyFileType(final),
		Size:       stat.Size(),
		ModifiedAt: stat.ModTime().UTC(),
	}, nil
}

// List enumerates regular files in root, sorted case-insensitively by name.
// A missing root is created and reported as empty instead of erroring, so the
// first listing after registration (or a wiped volume) self-heals.
func (a *Allocator) List(root string) ([]FileInfo, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create storage root: %w", err)
		}
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read storage root: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:       entry.Name(),
			FileType:   ClassifyFileType(entry.Name()),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		a, b := strings.ToLower(files[i].Name), strings.ToLower(files[j].Name)
		if a == b {
			return files[i].Name < files[j].Name
		}
		return a < b
	})
	return files, nil
}

// Open returns the file for download. The name goes through SanitizeName
// first, so traversal inputs turn into a lookup that simply misses.
func (a *Allocator) Open(root, name string) (*os.File, error) {
	name, err := SanitizeName(name)
	if err != nil {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	stat, err := f.Stat()
	if err != nil || !stat.Mode().IsRegular() {
		f.Close()
		return nil, ErrNotFound
	}
	return f, nil
}

func (a *Allocator) Rename(root, oldName, newName string) (string, error) {
	oldSafe, err := SanitizeName(oldName)
	if err != nil {
		return "", ErrNotFound
	}
	newSafe, err := SanitizeName(newName)
	if err != nil {
		return "", err
	}

	oldPath := filepath.Join(root, oldSafe)
	if _, err := os.Stat(oldPath); errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}

	newPath := filepath.Join(root, newSafe)
	if _, err := os.Stat(newPath); err == nil {
		return "", ErrExists
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return "", fmt.Errorf("rename file: %w", err)
	}
	return newSafe, nil
}

// Delete is deliberately not idempotent: removing a file that is already gone
// reports ErrNotFound instead of succeeding silently.
func (a *Allocator) Delete(root, name string) error {
	safe, err := SanitizeName(name)
	if err != nil {
		return ErrNotFound
	}
	path := filepath.Join(root, safe)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}
