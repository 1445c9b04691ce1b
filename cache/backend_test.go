package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// exerciseBackend runs the Backend contract against b.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()
	name := "0123456789abcdef0123456789abcdef.json"

	if _, err := b.Read(ctx, name); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read() missing error = %v, want ErrNotFound", err)
	}
	if err := b.Write(ctx, name, []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := b.Write(ctx, name, []byte(`{"v":2}`)); err != nil {
		t.Fatalf("overwrite error = %v", err)
	}
	data, err := b.Read(ctx, name)
	if err != nil || string(data) != `{"v":2}` {
		t.Fatalf("Read() = %q, %v", data, err)
	}

	names, err := b.Names(ctx)
	if err != nil || len(names) != 1 || names[0] != name {
		t.Fatalf("Names() = %v, %v", names, err)
	}

	if err := b.Delete(ctx, name); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := b.Delete(ctx, name); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if names, _ := b.Names(ctx); len(names) != 0 {
		t.Fatalf("Names() after delete = %v", names)
	}
	if b.Location() == "" {
		t.Error("Location() is empty")
	}
}

func TestDirBackend_Contract(t *testing.T) {
	b, err := NewDirBackend(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	exerciseBackend(t, b)
}

func TestMemoryBackend_Contract(t *testing.T) {
	exerciseBackend(t, NewMemoryBackend())
}

func TestMemoryBackend_CopiesData(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()
	buf := []byte("abc")
	_ = m.Write(ctx, "a.json", buf)
	buf[0] = 'x'

	got, _ := m.Read(ctx, "a.json")
	if string(got) != "abc" {
		t.Fatalf("stored data aliased caller buffer: %q", got)
	}
}

func TestNewDirBackend_DefaultAndNested(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if _, err := NewDirBackend(nested); err != nil {
		t.Fatalf("NewDirBackend() error = %v", err)
	}
	if fi, err := os.Stat(nested); err != nil || !fi.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}

	t.Chdir(root)
	b, err := NewDirBackend("")
	if err != nil {
		t.Fatal(err)
	}
	if b.Dir() != DefaultDir {
		t.Errorf("Dir() = %q, want %q", b.Dir(), DefaultDir)
	}
}

func TestDirBackend_RecreatesRemovedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	b, err := NewDirBackend(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	if names, err := b.Names(context.Background()); err != nil || len(names) != 0 {
		t.Fatalf("Names() on removed dir = %v, %v", names, err)
	}
	if err := b.Write(context.Background(), "0123456789abcdef0123456789abcdef.json", []byte("{}")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
}

func TestDirBackend_RejectsUnsafeNames(t *testing.T) {
	b, err := NewDirBackend(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, name := range []string{"../escape.json", "sub/dir.json", "plain.txt", ".tmp-1.json"} {
		if err := b.Write(ctx, name, []byte("{}")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Write(%q) error = %v, want ErrInvalidKey", name, err)
		}
	}
}

func TestDirBackend_NamesIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	b, err := NewDirBackend(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b.json", "a.json", ".tmp-123", "readme.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	names, err := b.Names(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "a.json" || names[1] != "b.json" {
		t.Fatalf("Names() = %v", names)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, closeFn, err := Open(ctx, BackendConfig{Kind: KindMemory})
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	if _, ok := b.(*MemoryBackend); !ok {
		t.Errorf("Open(memory) = %T", b)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close error = %v", err)
	}

	b, _, err = Open(ctx, BackendConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open(default) error = %v", err)
	}
	if _, ok := b.(*DirBackend); !ok {
		t.Errorf("Open(default) = %T, want *DirBackend", b)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	b, _, err = Open(ctx, BackendConfig{Kind: KindDir, Dir: filepath.Join(file, "cache")})
	if err == nil {
		t.Fatal("Open(dir) under a regular file succeeded")
	}
	if b != nil {
		t.Errorf("Open(dir) failure returned backend %#v, want nil interface", b)
	}

	if _, closeFn, err := Open(ctx, BackendConfig{Kind: "s3"}); !errors.Is(err, ErrUnknownBackend) || closeFn == nil {
		t.Errorf("Open(s3) error = %v", err)
	}
	if _, _, err := Open(ctx, BackendConfig{Kind: KindRedis}); err == nil {
		t.Error("Open(redis) without address succeeded")
	}
}

func TestNewGCSBackend_Validation(t *testing.T) {
	if _, err := NewGCSBackend(nil, GCSConfig{Bucket: "b"}); err == nil {
		t.Error("nil client accepted")
	}
}

func TestNormalizePrefix(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"insights":  "insights/",
		"/insights": "insights/",
		"a/b/":      "a/b/",
	}
	for in, want := range tests {
		if got := normalizePrefix(in); got != want {
			t.Errorf("normalizePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRedisBackend_Contract(t *testing.T) {
	addr := os.Getenv("POSTINSIGHTS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("POSTINSIGHTS_TEST_REDIS_ADDR not set")
	}
	b, err := NewRedisBackend(context.Background(), RedisConfig{Addr: addr, Prefix: "postinsights-test:"})
	if err != nil {
		t.Fatalf("NewRedisBackend() error = %v", err)
	}
	defer b.Close()
	exerciseBackend(t, b)
}
