package master

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSnapshotStore(filepath.Join(t.TempDir(), "gfs.img"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	snap, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap != nil {
		t.Fatalf("empty store loaded %+v", snap)
	}

	m := NewMaster(testConfig(2))
	kept, err := m.Allocate("/dir/kept", 3)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Allocate("/gone", 1); err != nil {
		t.Fatal(err)
	}

	if err := store.Save(ctx, m.Snapshot()); err != nil {
		t.Fatal(err)
	}

	if _, err := m.DeleteFile("/gone"); err != nil {
		t.Fatal(err)
	}

	if err := store.Save(ctx, m.Snapshot()); err != nil {
		t.Fatal(err)
	}

	snap, err = store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if len(snap.Files) != 1 || len(snap.Chunks) != 3 {
		t.Fatalf("loaded %d files and %d chunks, want 1 and 3", len(snap.Files), len(snap.Chunks))
	}

	restored := NewMaster(testConfig(2))
	restored.Restore(snap)

	if restored.Exists("/gone") {
		t.Fatal("deleted file came back from snapshot")
	}

	chunks, err := restored.ResolveChunks("/dir/kept")
	if err != nil {
		t.Fatal(err)
	}

	for i := range kept {
		if chunks[i] != kept[i] {
			t.Fatalf("restored chunks %v, want %v", chunks, kept)
		}

		want, _ := m.ResolveReplicas(kept[i])
		got, err := restored.ResolveReplicas(kept[i])
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
			t.Fatalf("restored replicas %v, want %v", got, want)
		}
	}
}
