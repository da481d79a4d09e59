// Package store persists roster snapshots.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
)

// SnapshotStore saves and loads the full roster state.
//
// Load returns an empty snapshot when nothing has been saved. When stored
// data cannot be read or decoded it returns an empty snapshot together with
// an error wrapping domain.ErrPersistence, so callers can log and carry on.
// Save replaces the stored state atomically.
type SnapshotStore interface {
	Load(ctx context.Context) (domain.Snapshot, error)
	Save(ctx context.Context, snap domain.Snapshot) error
}

func encode(snap domain.Snapshot) ([]byte, error) {
	if snap.Version == 0 {
		snap.Version = domain.SnapshotVersion
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding snapshot: %v", domain.ErrPersistence, err)
	}
	return data, nil
}

func decode(data []byte) (domain.Snapshot, error) {
	snap := domain.EmptySnapshot()
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.EmptySnapshot(), fmt.Errorf("%w: decoding snapshot: %v", domain.ErrPersistence, err)
	}
	if snap.Version > domain.SnapshotVersion {
		return domain.EmptySnapshot(), fmt.Errorf("%w: snapshot version %d is newer than supported version %d",
			domain.ErrPersistence, snap.Version, domain.SnapshotVersion)
	}
	return snap, nil
}
