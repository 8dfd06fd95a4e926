package artifact

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"yt2mp3/internal/config"
)

func newMirror(t *testing.T) (*RedisMirror, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisMirror(client, 30*time.Minute), mr
}

func TestRedisMirror_SaveLoadRemove(t *testing.T) {
	ctx := context.Background()
	mirror, mr := newMirror(t)
	a := newArtifact(t, time.Now().Truncate(time.Second))

	if err := mirror.Save(ctx, a); err != nil {
		t.Fatalf("Save error=%v", err)
	}
	if ttl := mr.TTL("artifact:" + a.FileID); ttl != 30*time.Minute {
		t.Fatalf("ttl=%v", ttl)
	}

	got, err := mirror.Load(ctx, a.FileID)
	if err != nil {
		t.Fatalf("Load error=%v", err)
	}
	if got.FullPath != a.FullPath || got.Info.Title != "Song" || *got.TrimmedSize != 300 {
		t.Fatalf("Load=%+v", got)
	}

	if err := mirror.Remove(ctx, a.FileID); err != nil {
		t.Fatalf("Remove error=%v", err)
	}
	if _, err := mirror.Load(ctx, a.FileID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_RehydratesFromMirror(t *testing.T) {
	ctx := context.Background()
	mirror, mr := newMirror(t)
	a := newArtifact(t, time.Now())
	if err := NewStore(mirror).Put(ctx, a); err != nil {
		t.Fatalf("Put error=%v", err)
	}

	// A second store stands in for a restarted process.
	restarted := NewStore(mirror)
	got, ok := restarted.Get(ctx, a.FileID)
	if !ok || got.FullPath != a.FullPath {
		t.Fatalf("rehydrate failed: %+v %v", got, ok)
	}

	if err := restarted.Delete(ctx, a.FileID); err != nil {
		t.Fatalf("Delete error=%v", err)
	}
	if mr.Exists("artifact:" + a.FileID) {
		t.Fatalf("mirror key left after Delete")
	}
	if exists(a.FullPath) {
		t.Fatalf("file left after Delete")
	}
}

func TestStore_SkipsMirrorRecordWithoutFiles(t *testing.T) {
	ctx := context.Background()
	mirror, _ := newMirror(t)
	a := newArtifact(t, time.Now())
	_ = mirror.Save(ctx, a)
	_ = os.Remove(a.FullPath)

	if _, ok := NewStore(mirror).Get(ctx, a.FileID); ok {
		t.Fatalf("record without its full file must not be restored")
	}
}

func TestStore_RehydrateDropsMissingTrimmedFile(t *testing.T) {
	ctx := context.Background()
	mirror, _ := newMirror(t)
	a := newArtifact(t, time.Now())
	_ = mirror.Save(ctx, a)
	_ = os.Remove(a.TrimmedPath)

	got, ok := NewStore(mirror).Get(ctx, a.FileID)
	if !ok {
		t.Fatalf("expected rehydrated artifact")
	}
	if got.HasTrimmed() || got.TrimmedSize != nil {
		t.Fatalf("trimmed version should be dropped: %+v", got)
	}
}

func TestConnectRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.RedisAddr = mr.Addr()
	client := ConnectRedis(ctx, cfg)
	if client == nil {
		t.Fatalf("expected a client for a live server")
	}
	_ = client.Close()

	cfg.RedisAddr = ""
	if ConnectRedis(ctx, cfg) != nil {
		t.Fatalf("empty address should disable Redis")
	}

	addr := mr.Addr()
	mr.Close()
	cfg.RedisAddr = addr
	if ConnectRedis(ctx, cfg) != nil {
		t.Fatalf("unreachable Redis should fall back to memory")
	}
}
