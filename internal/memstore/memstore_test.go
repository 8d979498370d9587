package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/privilege"
	"github.com/MrEthical07/goSession/session"
)

func TestProfilesLookupBySafeName(t *testing.T) {
	p := NewProfiles()
	added, err := p.Add("Cool Player", "$2a$hash", privilege.Default)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}

	got, err := p.ProfileByName(context.Background(), "cool player")
	if err != nil {
		t.Fatalf("ProfileByName error: %v", err)
	}
	if got.ID != added.ID || got.SafeName != "cool_player" {
		t.Fatalf("unexpected profile %+v", got)
	}

	if _, err := p.Add("COOL PLAYER", "x", privilege.Default); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}
	if _, err := p.PasswordHash(context.Background(), 999); !errors.Is(err, session.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestDenylistPrune(t *testing.T) {
	d := NewDenylist()
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	_ = d.Add(ctx, "a", now.Add(time.Minute), now)
	_ = d.Add(ctx, "b", now.Add(time.Hour), now)
	_ = d.Add(ctx, "c", now.Add(-time.Second), now)

	if d.Len() != 2 {
		t.Fatalf("already expired entries must not be added, len=%d", d.Len())
	}
	if n := d.Prune(now.Add(2 * time.Minute)); n != 1 {
		t.Fatalf("expected one pruned entry, got %d", n)
	}
	if ok, _ := d.Contains(ctx, "b"); !ok {
		t.Fatal("expected b to survive pruning")
	}
}

func TestDenylistAddSweepsExpired(t *testing.T) {
	d := NewDenylist()
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	for _, fp := range []string{"a", "b", "c"} {
		_ = d.Add(ctx, fp, now.Add(time.Hour), now)
	}
	// Within the sweep interval nothing is scanned.
	_ = d.Add(ctx, "d", now.Add(2*time.Hour), now.Add(30*time.Second))
	if d.Len() != 4 {
		t.Fatalf("len=%d want 4", d.Len())
	}

	later := now.Add(90 * time.Minute)
	_ = d.Add(ctx, "e", later.Add(time.Hour), later)
	if d.Len() != 2 {
		t.Fatalf("expired entries should be swept on add, len=%d", d.Len())
	}
	if ok, _ := d.Contains(ctx, "a"); ok {
		t.Fatal("expected a to be swept")
	}
	if ok, _ := d.Contains(ctx, "d"); !ok {
		t.Fatal("expected d to survive")
	}
}

func TestTokenLogDelayHonorsContext(t *testing.T) {
	l := NewTokenLog()
	l.Delay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.AppendIssuance(ctx, session.IssuanceRecord{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(l.Issuances()) != 0 {
		t.Fatal("cancelled append must not record")
	}
}
