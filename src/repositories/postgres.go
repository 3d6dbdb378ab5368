package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zapflow/zapflow-api/src/models"
)

// PostgresAPIKeyStore implements APIKeyStore against a pgx pool
type PostgresAPIKeyStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAPIKeyStore creates a new Postgres-backed key store
func NewPostgresAPIKeyStore(pool *pgxpool.Pool) *PostgresAPIKeyStore {
	return &PostgresAPIKeyStore{pool: pool}
}

const apiKeyColumns = `
	k.id, k.user_id, k.name, k.key_hash, k.salt, k.last8, k.status,
	k.expires_at, k.last_used_at, k.ip_allowlist, k.rate_limit_per_minute, k.created_at,
	COALESCE(array_agg(s.instance_id ORDER BY s.instance_id) FILTER (WHERE s.instance_id IS NOT NULL), '{}')
`

// Get loads a key with its scope rows in one round trip
func (st *PostgresAPIKeyStore) Get(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys k
		LEFT JOIN api_key_scopes s ON s.api_key_id = k.id
		WHERE k.id = $1
		GROUP BY k.id
	`

	key := &models.APIKey{}
	err := st.pool.QueryRow(ctx, query, id).Scan(
		&key.ID, &key.UserID, &key.Name, &key.KeyHash, &key.Salt, &key.Last8, &key.Status,
		&key.ExpiresAt, &key.LastUsedAt, &key.IPAllowlist, &key.RateLimitPerMinute, &key.CreatedAt,
		&key.InstanceIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load api key: %w", err)
	}

	return key, nil
}

// Create inserts the key row and its scope rows in one transaction
func (st *PostgresAPIKeyStore) Create(ctx context.Context, key *models.APIKey, instanceIDs []string) error {
	return st.createTx(ctx, key, instanceIDs, uuid.Nil)
}

// CreateAndRevoke inserts the new key + scope rows and revokes the old key atomically
func (st *PostgresAPIKeyStore) CreateAndRevoke(ctx context.Context, key *models.APIKey, instanceIDs []string, revokeID uuid.UUID) error {
	return st.createTx(ctx, key, instanceIDs, revokeID)
}

func (st *PostgresAPIKeyStore) createTx(ctx context.Context, key *models.APIKey, instanceIDs []string, revokeID uuid.UUID) error {
	tx, err := st.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO api_keys (
			id, user_id, name, key_hash, salt, last8, status,
			expires_at, ip_allowlist, rate_limit_per_minute, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING created_at
	`, key.ID, key.UserID, key.Name, key.KeyHash, key.Salt, key.Last8, key.Status,
		key.ExpiresAt, key.IPAllowlist, key.RateLimitPerMinute,
	).Scan(&key.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}

	for _, instanceID := range instanceIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO api_key_scopes (api_key_id, instance_id) VALUES ($1, $2)
		`, key.ID, instanceID); err != nil {
			return fmt.Errorf("failed to insert scope row: %w", err)
		}
	}

	if revokeID != uuid.Nil {
		if _, err := tx.Exec(ctx, `
			UPDATE api_keys SET status = 'revoked' WHERE id = $1
		`, revokeID); err != nil {
			return fmt.Errorf("failed to revoke old key: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	key.InstanceIDs = instanceIDs
	return nil
}

// Revoke flips an active key to revoked, scoped to the owning user
func (st *PostgresAPIKeyStore) Revoke(ctx context.Context, userID, id uuid.UUID) error {
	result, err := st.pool.Exec(ctx, `
		UPDATE api_keys SET status = 'revoked'
		WHERE id = $1 AND user_id = $2 AND status = 'active'
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastUsed updates the advisory last_used_at timestamp
func (st *PostgresAPIKeyStore) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := st.pool.Exec(ctx, `
		UPDATE api_keys SET last_used_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to update last_used_at: %w", err)
	}
	return nil
}

// ListByUser returns the user's keys with scopes joined, newest first
func (st *PostgresAPIKeyStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := st.pool.Query(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys k
		LEFT JOIN api_key_scopes s ON s.api_key_id = k.id
		WHERE k.user_id = $1
		GROUP BY k.id
		ORDER BY k.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		key := &models.APIKey{}
		if err := rows.Scan(
			&key.ID, &key.UserID, &key.Name, &key.KeyHash, &key.Salt, &key.Last8, &key.Status,
			&key.ExpiresAt, &key.LastUsedAt, &key.IPAllowlist, &key.RateLimitPerMinute, &key.CreatedAt,
			&key.InstanceIDs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// PostgresInstanceStore implements InstanceStore against a pgx pool
type PostgresInstanceStore struct {
	pool *pgxpool.Pool
}

// NewPostgresInstanceStore creates a new Postgres-backed instance store
func NewPostgresInstanceStore(pool *pgxpool.Pool) *PostgresInstanceStore {
	return &PostgresInstanceStore{pool: pool}
}

// FilterOwned returns the candidates owned by userID, in candidate order
func (st *PostgresInstanceStore) FilterOwned(ctx context.Context, userID uuid.UUID, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	rows, err := st.pool.Query(ctx, `
		SELECT id FROM instances WHERE user_id = $1 AND id = ANY($2)
	`, userID, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to query owned instances: %w", err)
	}
	defer rows.Close()

	owned := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan instance id: %w", err)
		}
		owned[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instances: %w", err)
	}

	var filtered []string
	for _, id := range candidates {
		if owned[id] {
			filtered = append(filtered, id)
			owned[id] = false // drop duplicates
		}
	}
	return filtered, nil
}

// Create persists a provisioned instance
func (st *PostgresInstanceStore) Create(ctx context.Context, inst *models.Instance) error {
	err := st.pool.QueryRow(ctx, `
		INSERT INTO instances (id, user_id, name, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`, inst.ID, inst.UserID, inst.Name, inst.Status).Scan(&inst.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert instance: %w", err)
	}
	return nil
}

// ListByUser returns the user's instances, newest first
func (st *PostgresInstanceStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Instance, error) {
	rows, err := st.pool.Query(ctx, `
		SELECT id, user_id, name, status, created_at
		FROM instances
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	defer rows.Close()

	var instances []models.Instance
	for rows.Next() {
		var inst models.Instance
		if err := rows.Scan(&inst.ID, &inst.UserID, &inst.Name, &inst.Status, &inst.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, inst)
	}

	return instances, rows.Err()
}

// UpdateStatus records a connection state change
func (st *PostgresInstanceStore) UpdateStatus(ctx context.Context, instanceID string, status models.InstanceStatus) error {
	result, err := st.pool.Exec(ctx, `
		UPDATE instances SET status = $1 WHERE id = $2
	`, status, instanceID)
	if err != nil {
		return fmt.Errorf("failed to update instance status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ensure the Postgres stores satisfy the interfaces
var (
	_ APIKeyStore   = (*PostgresAPIKeyStore)(nil)
	_ InstanceStore = (*PostgresInstanceStore)(nil)
)
