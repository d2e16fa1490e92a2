package kvstore

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, found, err := m.Get(ctx, "missing"); found || err != nil {
		t.Fatalf("get missing = found=%v err=%v", found, err)
	}

	if err := m.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	got, found, err := m.Get(ctx, "k")
	if err != nil || !found || string(got) != "v1" {
		t.Fatalf("get = %q found=%v err=%v", got, found, err)
	}

	// Mutating the returned slice must not touch the stored value.
	got[0] = 'x'
	again, _, _ := m.Get(ctx, "k")
	if string(again) != "v1" {
		t.Fatalf("stored value corrupted through returned slice: %q", again)
	}

	if err := m.Set(ctx, "k", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	got, _, _ = m.Get(ctx, "k")
	if string(got) != "v2" {
		t.Fatalf("overwrite = %q, want v2", got)
	}

	if err := m.Remove(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := m.Get(ctx, "k"); found {
		t.Fatal("key survived Remove")
	}

	_ = m.Set(ctx, "a", []byte("1"))
	_ = m.Set(ctx, "b", []byte("2"))
	if err := m.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"a", "b"} {
		if _, found, _ := m.Get(ctx, key); found {
			t.Fatalf("key %s survived Clear", key)
		}
	}
}
