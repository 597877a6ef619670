package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyayasetu/platform/internal/shared/errors"
)

// PostgresStore is the durable Store. The chain head is cached under a
// mutex so appends serialize and each entry hashes over its predecessor.
type PostgresStore struct {
	pool     *pgxpool.Pool
	mu       sync.Mutex
	lastHash string
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Initialize loads the last hash from the database.
func (s *PostgresStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hash string
	err := s.pool.QueryRow(ctx, `
		SELECT hash FROM justice.audit_entries
		ORDER BY sequence DESC
		LIMIT 1
	`).Scan(&hash)

	if err != nil && !strings.Contains(err.Error(), "no rows") {
		return errors.Wrap(err, "failed to get last audit hash")
	}

	s.lastHash = hash
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.PrevHash = s.lastHash
	entry.Hash = entry.computeHash()

	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return errors.Wrap(err, "failed to marshal audit details")
	}

	query := `
		INSERT INTO justice.audit_entries (
			id, created_at, hash, prev_hash,
			actor_id, action, entity_type, entity_id,
			details, ip_address, user_agent
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		) RETURNING sequence`

	err = s.pool.QueryRow(ctx, query,
		entry.ID, entry.CreatedAt, entry.Hash, entry.PrevHash,
		entry.ActorID, entry.Action, entry.EntityType, entry.EntityID,
		detailsJSON, entry.IPAddress, entry.UserAgent,
	).Scan(&entry.Sequence)
	if err != nil {
		return errors.Wrap(err, "failed to append audit entry")
	}

	s.lastHash = entry.Hash
	return nil
}

func (s *PostgresStore) ListByEntities(ctx context.Context, refs []EntityRef) ([]Entry, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []interface{}
	for i, ref := range refs {
		conditions = append(conditions, fmt.Sprintf("(entity_type = $%d AND entity_id = $%d)", i*2+1, i*2+2))
		args = append(args, ref.EntityType, ref.EntityID)
	}

	query := fmt.Sprintf(`
		SELECT sequence, id, created_at, hash, prev_hash,
		       actor_id, action, entity_type, entity_id,
		       details, ip_address, user_agent
		FROM justice.audit_entries
		WHERE %s
		ORDER BY sequence DESC`, strings.Join(conditions, " OR "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list audit entries")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var detailsJSON []byte
		if err := rows.Scan(
			&e.Sequence, &e.ID, &e.CreatedAt, &e.Hash, &e.PrevHash,
			&e.ActorID, &e.Action, &e.EntityType, &e.EntityID,
			&detailsJSON, &e.IPAddress, &e.UserAgent,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan audit entry")
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
				return nil, errors.Wrap(err, "failed to decode audit details")
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
