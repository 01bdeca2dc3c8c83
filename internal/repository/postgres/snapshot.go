package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AlwanWZ/shophub/internal/domain"
	"github.com/AlwanWZ/shophub/pkg/database"
	apperrors "github.com/AlwanWZ/shophub/pkg/errors"
)

const (
	loadQuery = `SELECT payload FROM cart_snapshots WHERE session_key = $1`

	saveQuery = `
		INSERT INTO cart_snapshots (session_key, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at`

	deleteQuery = `DELETE FROM cart_snapshots WHERE session_key = $1`
)

// SnapshotStore implements repository.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool database.DBTX
	now  func() time.Time
}

// NewSnapshotStore creates a new PostgreSQL-backed snapshot store.
func NewSnapshotStore(pool database.DBTX) *SnapshotStore {
	return &SnapshotStore{pool: pool, now: time.Now}
}

// Load retrieves a cart snapshot by session key.
func (s *SnapshotStore) Load(ctx context.Context, key string) (cart *domain.Cart, err error) {
	ctx, end := database.TraceQuery(ctx, "LoadSnapshot", loadQuery)
	defer func() { end(err) }()

	var payload []byte
	if err = s.pool.QueryRow(ctx, loadQuery, key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("cart snapshot", key)
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var c domain.Cart
	if err = json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &c, nil
}

// Save upserts a cart snapshot.
func (s *SnapshotStore) Save(ctx context.Context, key string, cart *domain.Cart) (err error) {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "SaveSnapshot", saveQuery)
	defer func() { end(err) }()

	if _, err = s.pool.Exec(ctx, saveQuery, key, payload, s.now().UTC()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Delete removes a cart snapshot. Deleting a missing key is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, key string) (err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteSnapshot", deleteQuery)
	defer func() { end(err) }()

	if _, err = s.pool.Exec(ctx, deleteQuery, key); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
