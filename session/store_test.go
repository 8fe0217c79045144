package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, "test"), mr
}

func testSession(sid string) *Session {
	now := time.Now()
	return &Session{
		SessionID:   sid,
		UserID:      "u-1",
		Account:     "admin",
		Roles:       []string{"admin", "editor"},
		RefreshHash: sha256.Sum256([]byte("secret-1")),
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(time.Hour).Unix(),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := testSession("")
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.UserID != in.UserID || out.Account != in.Account || out.RefreshHash != in.RefreshHash {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if len(out.Roles) != 2 || out.Roles[1] != "editor" || out.ExpiresAt != in.ExpiresAt {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	if _, err := Decode(append(data, 0)); !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("expected trailing bytes to be rejected, got %v", err)
	}
	if _, err := Decode(data[:len(data)-1]); !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("expected truncated blob to be rejected, got %v", err)
	}
}

func TestSaveGetDelete(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()
	sess := testSession("sid-1")

	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SessionID != "sid-1" || got.Account != "admin" {
		t.Fatalf("unexpected session %+v", got)
	}

	ids, err := store.ActiveSessionIDs(ctx, "u-1")
	if err != nil || len(ids) != 1 {
		t.Fatalf("expected one active session, got %v (%v)", ids, err)
	}

	if err := store.Delete(ctx, "sid-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "sid-1"); err != nil {
		t.Fatalf("second delete must be a no-op: %v", err)
	}
	if _, err := store.Get(ctx, "sid-1"); !errors.Is(err, ErrRefreshSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	ids, _ = store.ActiveSessionIDs(ctx, "u-1")
	if len(ids) != 0 {
		t.Fatalf("expected index cleanup, got %v", ids)
	}
}

func TestSaveRejectsExpiredSession(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	sess := testSession("sid-old")
	sess.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	if err := store.Save(context.Background(), sess); !errors.Is(err, ErrRefreshSessionExpired) {
		t.Fatalf("expected ErrRefreshSessionExpired, got %v", err)
	}
}

func TestRotateRefreshHash(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()
	sess := testSession("sid-rot")
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	first := sess.RefreshHash
	second := sha256.Sum256([]byte("secret-2"))
	rotated, err := store.RotateRefreshHash(ctx, "sid-rot", first, second)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.RefreshHash != second || rotated.UserID != "u-1" || len(rotated.Roles) != 2 {
		t.Fatalf("unexpected rotated session %+v", rotated)
	}

	stored, err := store.Get(ctx, "sid-rot")
	if err != nil || stored.RefreshHash != second {
		t.Fatalf("expected stored hash to be rotated, got %+v (%v)", stored, err)
	}
}

func TestRotateReuseDeletesSession(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()
	sess := testSession("sid-reuse")
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	first := sess.RefreshHash
	second := sha256.Sum256([]byte("secret-2"))
	if _, err := store.RotateRefreshHash(ctx, "sid-reuse", first, second); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	third := sha256.Sum256([]byte("secret-3"))
	if _, err := store.RotateRefreshHash(ctx, "sid-reuse", first, third); !errors.Is(err, ErrRefreshHashMismatch) {
		t.Fatalf("expected reuse detection, got %v", err)
	}
	if _, err := store.Get(ctx, "sid-reuse"); !errors.Is(err, ErrRefreshSessionNotFound) {
		t.Fatalf("reuse must revoke the session, got %v", err)
	}
	if _, err := store.RotateRefreshHash(ctx, "sid-reuse", second, third); !errors.Is(err, ErrRefreshSessionNotFound) {
		t.Fatalf("expected not found after revoke, got %v", err)
	}
}

func TestRotateExpiredSession(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()
	sess := testSession("sid-exp")
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	next := sha256.Sum256([]byte("next"))
	if _, err := store.RotateRefreshHash(ctx, "sid-exp", sess.RefreshHash, next); !errors.Is(err, ErrRefreshSessionExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestSessionKeyExpiresInRedis(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	ctx := context.Background()
	if err := store.Save(ctx, testSession("sid-ttl")); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := store.Get(ctx, "sid-ttl"); !errors.Is(err, ErrRefreshSessionNotFound) {
		t.Fatalf("expected key to expire, got %v", err)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()
	for _, sid := range []string{"a", "b", "c"} {
		if err := store.Save(ctx, testSession(sid)); err != nil {
			t.Fatalf("save %s: %v", sid, err)
		}
	}
	if err := store.DeleteAllForUser(ctx, "u-1"); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	for _, sid := range []string{"a", "b", "c"} {
		if _, err := store.Get(ctx, sid); !errors.Is(err, ErrRefreshSessionNotFound) {
			t.Fatalf("session %s survived: %v", sid, err)
		}
	}
}

func TestRedisDownIsWrapped(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	mr.Close()
	if _, err := store.Get(context.Background(), "x"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Ping(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ping failure, got %v", err)
	}
}

func FuzzDecode(f *testing.F) {
	seed, _ := Encode(testSession(""))
	f.Add(seed)
	f.Add([]byte{1})
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, data []byte) {
		sess, err := Decode(data)
		if err != nil {
			return
		}
		again, err := Encode(sess)
		if err != nil {
			t.Fatalf("decoded session must re-encode: %v", err)
		}
		if string(again) != string(data) {
			t.Fatal("re-encoding changed the blob")
		}
	})
}
