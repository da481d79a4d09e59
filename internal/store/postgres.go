package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Satokaheni/mythic-plus-bot/core/db"
	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
)

// DefaultSnapshotHistory is how many snapshots the Postgres store keeps.
const DefaultSnapshotHistory = 24

// PostgresSnapshotStore appends each snapshot as a jsonb row and prunes old
// rows in the same transaction. Schema: core/db/migrations.
type PostgresSnapshotStore struct {
	db      *db.DB
	history int
}

func NewPostgresSnapshotStore(database *db.DB, history int) *PostgresSnapshotStore {
	if history < 1 {
		history = DefaultSnapshotHistory
	}
	return &PostgresSnapshotStore{db: database, history: history}
}

const (
	loadSnapshotSQL = `SELECT state FROM roster_snapshots ORDER BY id DESC LIMIT 1`

	insertSnapshotSQL = `INSERT INTO roster_snapshots (version, saved_at, state) VALUES ($1, $2, $3)`

	pruneSnapshotsSQL = `DELETE FROM roster_snapshots
WHERE id NOT IN (SELECT id FROM roster_snapshots ORDER BY id DESC LIMIT $1)`
)

func (s *PostgresSnapshotStore) Load(ctx context.Context) (domain.Snapshot, error) {
	var data []byte
	if err := s.db.QueryRow(ctx, loadSnapshotSQL).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EmptySnapshot(), nil
		}
		return domain.EmptySnapshot(), fmt.Errorf("%w: loading snapshot: %v", domain.ErrPersistence, err)
	}
	return decode(data)
}

func (s *PostgresSnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	if snap.Version == 0 {
		snap.Version = domain.SnapshotVersion
	}
	data, err := encode(snap)
	if err != nil {
		return err
	}

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertSnapshotSQL, snap.Version, snap.SavedAt, data); err != nil {
			return fmt.Errorf("inserting snapshot: %w", err)
		}
		if _, err := tx.Exec(ctx, pruneSnapshotsSQL, s.history); err != nil {
			return fmt.Errorf("pruning snapshots: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}
