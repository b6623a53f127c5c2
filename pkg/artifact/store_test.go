package artifact

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	key := Key(uuid.New(), time.Now(), "svg")
	if err := store.Put(ctx, key, strings.NewReader("<svg/>")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "<svg/>" {
		t.Errorf("content = %q, want <svg/>", data)
	}
}

func TestGetMissing(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	_, err := store.Get(context.Background(), "nope/missing.svg")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListScopedToRepo(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	repoA, repoB := uuid.New(), uuid.New()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, repo := range []uuid.UUID{repoA, repoA, repoB} {
		key := Key(repo, base.Add(time.Duration(i)*time.Hour), "html")
		if err := store.Put(ctx, key, strings.NewReader("x")); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	keys, err := store.List(ctx, repoA.String())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("len(keys) = %d, want 2", len(keys))
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, repoA.String()+"/") {
			t.Errorf("key %q not scoped to repo", key)
		}
	}
}

func TestListEmptyPrefix(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	keys, err := store.List(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("len(keys) = %d, want 0", len(keys))
	}
}

func TestDelete(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	key := Key(uuid.New(), time.Now(), "csv")
	if err := store.Put(ctx, key, strings.NewReader("a,b")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}
