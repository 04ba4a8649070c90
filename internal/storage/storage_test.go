package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T) (*Allocator, string) {
	t.Helper()
	a := &Allocator{BaseDir: t.TempDir()}
	root := a.RootFor("test-public-id")
	require.NoError(t, os.MkdirAll(root, 0o755))
	return a, root
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"report.pdf":            "report.pdf",
		"my photo.JPG":          "my_photo.JPG",
		"../../etc/passwd":      "passwd",
		"..\\..\\windows\\a.txt": "a.txt",
		"/etc/shadow":           "shadow",
		"dir/sub/file.txt":      "file.txt",
		"we!rd@na#me.txt":       "werdname.txt",
		".hidden":               "hidden",
	}
	for in, want := range cases {
		got, err := SanitizeName(in)
		require.NoError(t, err, "input %q", in)
		require.Equal(t, want, got, "input %q", in)
		require.False(t, strings.ContainsAny(got, "/\\"), "input %q", in)
	}

	for _, in := range []string{"", ".", "..", "...", "///", "日本語"} {
		_, err := SanitizeName(in)
		require.ErrorIs(t, err, ErrBadName, "input %q", in)
	}
}

func TestSaveCollisionSuffix(t *testing.T) {
	a, root := newTestAllocator(t)

	first, err := a.Save(root, "report.pdf", strings.NewReader("one"))
	require.NoError(t, err)
	require.Equal(t, "report.pdf", first.Name)

	second, err := a.Save(root, "report.pdf", strings.NewReader("two"))
	require.NoError(t, err)
	require.Equal(t, "report_1.pdf", second.Name)

	third, err := a.Save(root, "report.pdf", strings.NewReader("three"))
	require.NoError(t, err)
	require.Equal(t, "report_2.pdf", third.Name)

	// the originals are untouched
	data, err := os.ReadFile(filepath.Join(root, "report.pdf"))
	require.NoError(t, err)
	require.Equal(t, "one", string(data))
}

func TestSaveConcurrentSameName(t *testing.T) {
	a, root := newTestAllocator(t)

	const n = 16
	var wg sync.WaitGroup
	names := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := a.Save(root, "clash.txt", strings.NewReader(fmt.Sprintf("body %d", i)))
			if err == nil {
				names <- info.Name
			}
		}(i)
	}
	wg.Wait()
	close(names)

	seen := map[string]bool{}
	for name := range names {
		require.False(t, seen[name], "duplicate final name %s", name)
		seen[name] = true
	}
	require.Len(t, seen, n)
}

func TestListSortedCaseInsensitive(t *testing.T) {
	a, root := newTestAllocator(t)

	for _, name := range []string{"Banana.txt", "apple.txt", "cherry.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}
	// subdirectories are skipped
	require.NoError(t, os.Mkdir(filepath.Join(root, "subdir"), 0o755))

	files, err := a.List(root)
	require.NoError(t, err)
	require.Len(t, files, 3)
	require.Equal(t, "apple.txt", files[0].Name)
	require.Equal(t, "Banana.txt", files[1].Name)
	require.Equal(t, "cherry.txt", files[2].Name)

	require.Equal(t, "document", files[0].FileType)
	require.Equal(t, int64(1), files[0].Size)
	require.False(t, files[0].ModifiedAt.IsZero())
}

func TestListMissingRootSelfHeals(t *testing.T) {
	a := &Allocator{BaseDir: t.TempDir()}
	root := a.RootFor("never-created")

	files, err := a.List(root)
	require.NoError(t, err)
	require.Empty(t, files)

	stat, err := os.Stat(root)
	require.NoError(t, err)
	require.True(t, stat.IsDir())
}

func TestRename(t *testing.T) {
	a, root := newTestAllocator(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "old.txt"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "taken.txt"), []byte("taken"), 0o644))

	_, err := a.Rename(root, "missing.txt", "new.txt")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = a.Rename(root, "old.txt", "taken.txt")
	require.ErrorIs(t, err, ErrExists)

	// both files untouched after the conflict
	data, err := os.ReadFile(filepath.Join(root, "old.txt"))
	require.NoError(t, err)
	require.Equal(t, "old", string(data))
	data, err = os.ReadFile(filepath.Join(root, "taken.txt"))
	require.NoError(t, err)
	require.Equal(t, "taken", string(data))

	final, err := a.Rename(root, "old.txt", "new.txt")
	require.NoError(t, err)
	require.Equal(t, "new.txt", final)
	require.NoFileExists(t, filepath.Join(root, "old.txt"))
	require.FileExists(t, filepath.Join(root, "new.txt"))
}

func TestDeleteNotIdempotent(t *testing.T) {
	a, root := newTestAllocator(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "gone.txt"), []byte("x"), 0o644))

	require.NoError(t, a.Delete(root, "gone.txt"))
	require.ErrorIs(t, a.Delete(root, "gone.txt"), ErrNotFound)
}

func TestOpenRejectsTraversal(t *testing.T) {
	a, root := newTestAllocator(t)

	secret := filepath.Join(a.BaseDir, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o644))

	_, err := a.Open(root, "../secret.txt")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = a.Open(root, "..")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClassifyFileType(t *testing.T) {
	require.Equal(t, "image", ClassifyFileType("photo.JPG"))
	require.Equal(t, "video", ClassifyFileType("clip.mp4"))
	require.Equal(t, "audio", ClassifyFileType("song.mp3"))
	require.Equal(t, "document", ClassifyFileType("report.pdf"))
	require.Equal(t, "archive", ClassifyFileType("backup.zip"))
	require.Equal(t, "other", ClassifyFileType("binary.xyz"))
	require.Equal(t, "other", ClassifyFileType("noext"))
}
