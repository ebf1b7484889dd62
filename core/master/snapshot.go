package master

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
	dslvl "github.com/ipfs/go-ds-leveldb"
	"github.com/pyropy/chunkfs/core/model"
)

var (
	filesPrefix  = ds.NewKey("/files")
	chunksPrefix = ds.NewKey("/chunks")
	metaKey      = ds.NewKey("/meta/snapshot")
)

// Snapshot is a point-in-time copy of the master's file and replica-location tables.
type Snapshot struct {
	TakenAt time.Time
	Files   []model.FileMetadata
	Chunks  []model.ChunkMetadata
}

type snapshotMeta struct {
	TakenAt   time.Time
	NumFiles  int
	NumChunks int
}

// SnapshotStore persists snapshots in a leveldb datastore.
type SnapshotStore struct {
	store *dslvl.Datastore
}

func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	store, err := dslvl.NewDatastore(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store %s: %w", path, err)
	}

	return &SnapshotStore{store: store}, nil
}

func fileKey(path model.FilePath) ds.Key {
	// file names may contain '/', which datastore keys treat as a separator
	return filesPrefix.ChildString(base64.RawURLEncoding.EncodeToString([]byte(path)))
}

func chunkKey(chunk model.ChunkMetadata) ds.Key {
	return chunksPrefix.ChildString(chunk.ID.String())
}

// Save replaces the stored snapshot with snap in a single batch.
func (s *SnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}

	stale, err := s.keys(ctx)
	if err != nil {
		return err
	}

	batch, err := s.store.Batch(ctx)
	if err != nil {
		return err
	}

	put := func(k ds.Key, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		delete(stale, k.String())
		return batch.Put(ctx, k, b)
	}

	for _, file := range snap.Files {
		if err := put(fileKey(file.Path), file); err != nil {
			return err
		}
	}

	for _, chunk := range snap.Chunks {
		if err := put(chunkKey(chunk), chunk); err != nil {
			return err
		}
	}

	meta := snapshotMeta{TakenAt: snap.TakenAt, NumFiles: len(snap.Files), NumChunks: len(snap.Chunks)}
	if err := put(metaKey, meta); err != nil {
		return err
	}

	for k := range stale {
		if err := batch.Delete(ctx, ds.NewKey(k)); err != nil {
			return err
		}
	}

	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}

	log.Infow("snapshot", "status", "saved", "files", meta.NumFiles, "chunks", meta.NumChunks)
	return nil
}

// Load reads the stored snapshot. It returns nil when nothing was saved yet.
func (s *SnapshotStore) Load(ctx context.Context) (*Snapshot, error) {
	b, err := s.store.Get(ctx, metaKey)
	if errors.Is(err, ds.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var meta snapshotMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, fmt.Errorf("decoding snapshot meta: %w", err)
	}

	snap := &Snapshot{
		TakenAt: meta.TakenAt,
		Files:   make([]model.FileMetadata, 0, meta.NumFiles),
		Chunks:  make([]model.ChunkMetadata, 0, meta.NumChunks),
	}

	err = s.each(ctx, filesPrefix, func(v []byte) error {
		var file model.FileMetadata
		if err := json.Unmarshal(v, &file); err != nil {
			return err
		}
		snap.Files = append(snap.Files, file)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decoding files: %w", err)
	}

	err = s.each(ctx, chunksPrefix, func(v []byte) error {
		var chunk model.ChunkMetadata
		if err := json.Unmarshal(v, &chunk); err != nil {
			return err
		}
		snap.Chunks = append(snap.Chunks, chunk)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decoding chunks: %w", err)
	}

	return snap, nil
}

func (s *SnapshotStore) each(ctx context.Context, prefix ds.Key, fn func([]byte) error) error {
	res, err := s.store.Query(ctx, dsq.Query{Prefix: prefix.String()})
	if err != nil {
		return err
	}
	defer res.Close()

	for {
		r, hasNext := res.NextSync()
		if !hasNext {
			break
		}
		if r.Error != nil {
			return r.Error
		}

		if err := fn(r.Value); err != nil {
			return err
		}
	}

	return nil
}

func (s *SnapshotStore) keys(ctx context.Context) (map[string]struct{}, error) {
	res, err := s.store.Query(ctx, dsq.Query{KeysOnly: true})
	if err != nil {
		return nil, err
	}

	entries, err := res.Rest()
	if err != nil {
		return nil, err
	}

	keys := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		keys[e.Key] = struct{}{}
	}

	return keys, nil
}

func (s *SnapshotStore) Close() error {
	return s.store.Close()
}
