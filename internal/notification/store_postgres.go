package notification

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyayasetu/platform/internal/shared/errors"
	"github.com/nyayasetu/platform/internal/shared/types"
)

// PostgresStore is the durable Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO justice.notifications (
			id, title, message, type, priority, user_id,
			complaint_id, fir_id, case_id, hearing_id, judgment_id,
			is_read, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.pool.Exec(ctx, query,
		n.ID, n.Title, n.Message, n.Type, n.Priority, n.UserID,
		n.ComplaintID, n.FIRID, n.CaseID, n.HearingID, n.JudgmentID,
		n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save notification")
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID types.ID, filter ListFilter) ([]Notification, int, error) {
	where := `WHERE user_id = $1`
	if filter.UnreadOnly {
		where += ` AND is_read = FALSE`
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM justice.notifications `+where, userID).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count notifications")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, title, message, type, priority, user_id,
		       complaint_id, fir_id, case_id, hearing_id, judgment_id,
		       is_read, created_at
		FROM justice.notifications ` + where + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, userID, limit, filter.Offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list notifications")
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(
			&n.ID, &n.Title, &n.Message, &n.Type, &n.Priority, &n.UserID,
			&n.ComplaintID, &n.FIRID, &n.CaseID, &n.HearingID, &n.JudgmentID,
			&n.IsRead, &n.CreatedAt,
		); err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan notification")
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (s *PostgresStore) MarkRead(ctx context.Context, id, userID types.ID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE justice.notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to mark notification read")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("notification", id.String())
	}
	return nil
}
