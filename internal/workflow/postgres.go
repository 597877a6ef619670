package workflow

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyayasetu/platform/internal/shared/errors"
	"github.com/nyayasetu/platform/internal/shared/types"
)

// PostgresRepository implements Repository on PostgreSQL. Multi-record
// transitions run in one transaction; the conversion guard is a
// conditional UPDATE so concurrent conversions resolve inside the
// database, not in application locks.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const complaintColumns = `id, complaint_number, title, description, category, priority, status,
	location, jurisdiction, citizen_id, approved_by, approved_at, created_at, updated_at`

func (r *PostgresRepository) GetComplaint(ctx context.Context, id types.ID) (*Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM justice.complaints WHERE id = $1`

	c := &Complaint{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.ComplaintNumber, &c.Title, &c.Description, &c.Category, &c.Priority, &c.Status,
		&c.Location, &c.Jurisdiction, &c.CitizenID, &c.ApprovedBy, &c.ApprovedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("complaint", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find complaint")
	}
	return c, nil
}

const firColumns = `id, fir_number, title, description, complaint_id, filed_by, status,
	priority, category, location, jurisdiction, station_code, case_id, created_at, updated_at`

func (r *PostgresRepository) GetFIR(ctx context.Context, id types.ID) (*FIR, error) {
	query := `SELECT ` + firColumns + ` FROM justice.firs WHERE id = $1`

	f := &FIR{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.FIRNumber, &f.Title, &f.Description, &f.ComplaintID, &f.FiledBy, &f.Status,
		&f.Priority, &f.Category, &f.Location, &f.Jurisdiction, &f.StationCode, &f.CaseID, &f.CreatedAt, &f.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("FIR", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find FIR")
	}
	return f, nil
}

const caseColumns = `id, case_number, title, description, fir_id, complaint_id, plaintiff, defendant,
	status, priority, category, court_id, next_hearing_date, judgment_id, closed_at, created_at, updated_at`

func (r *PostgresRepository) GetCase(ctx context.Context, id types.ID) (*Case, error) {
	query := `SELECT ` + caseColumns + ` FROM justice.cases WHERE id = $1`

	k := &Case{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&k.ID, &k.CaseNumber, &k.Title, &k.Description, &k.FIRID, &k.ComplaintID, &k.Plaintiff, &k.Defendant,
		&k.Status, &k.Priority, &k.Category, &k.CourtID, &k.NextHearingDate, &k.JudgmentID, &k.ClosedAt, &k.CreatedAt, &k.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("case", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find case")
	}
	return k, nil
}

func (r *PostgresRepository) CreateComplaint(ctx context.Context, c *Complaint) error {
	query := `
		INSERT INTO justice.complaints (` + complaintColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.ComplaintNumber, c.Title, c.Description, c.Category, c.Priority, c.Status,
		c.Location, c.Jurisdiction, c.CitizenID, c.ApprovedBy, c.ApprovedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("complaint number already in use, retry the filing")
		}
		return errors.Wrap(err, "failed to save complaint")
	}
	return nil
}

func (r *PostgresRepository) CreateFIR(ctx context.Context, f *FIR) error {
	return r.insertFIR(ctx, r.pool, f)
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *PostgresRepository) insertFIR(ctx context.Context, db execer, f *FIR) error {
	query := `
		INSERT INTO justice.firs (` + firColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := db.Exec(ctx, query,
		f.ID, f.FIRNumber, f.Title, f.Description, f.ComplaintID, f.FiledBy, f.Status,
		f.Priority, f.Category, f.Location, f.Jurisdiction, f.StationCode, f.CaseID, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("FIR number already in use, retry the filing")
		}
		return errors.Wrap(err, "failed to save FIR")
	}
	return nil
}

func (r *PostgresRepository) ApproveComplaint(ctx context.Context, c *Complaint, f *FIR) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE justice.complaints
		SET status = $2, approved_by = $3, approved_at = $4, updated_at = $5
		WHERE id = $1`,
		c.ID, c.Status, c.ApprovedBy, c.ApprovedAt, c.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update complaint")
	}

	if err := r.insertFIR(ctx, tx, f); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (r *PostgresRepository) ConvertFIRToCase(ctx context.Context, f *FIR, k *Case) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	// The status guard makes exactly one conversion win. A raced FIR
	// matches zero rows and surfaces as a Conflict the engine replays.
	tag, err := tx.Exec(ctx, `
		UPDATE justice.firs
		SET status = $2, case_id = $3, updated_at = $4
		WHERE id = $1 AND status <> $2`,
		f.ID, FIRStatusConvertedToCase, f.CaseID, f.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update FIR")
	}
	if tag.RowsAffected() == 0 {
		return errors.Conflict("FIR is already converted to a case")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO justice.cases (`+caseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		k.ID, k.CaseNumber, k.Title, k.Description, k.FIRID, k.ComplaintID, k.Plaintiff, k.Defendant,
		k.Status, k.Priority, k.Category, k.CourtID, k.NextHearingDate, k.JudgmentID, k.ClosedAt, k.CreatedAt, k.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("case number or FIR reference already in use")
		}
		return errors.Wrap(err, "failed to save case")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (r *PostgresRepository) ScheduleHearing(ctx context.Context, h *Hearing, k *Case) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO justice.hearings (id, case_id, date, time, type, judge_id, courtroom, status, scheduled_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		h.ID, h.CaseID, h.Date, h.Time, h.Type, h.JudgeID, h.Courtroom, h.Status, h.ScheduledBy, h.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save hearing")
	}

	_, err = tx.Exec(ctx, `
		UPDATE justice.cases
		SET status = $2, next_hearing_date = $3, updated_at = $4
		WHERE id = $1`,
		k.ID, k.Status, k.NextHearingDate, k.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update case")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (r *PostgresRepository) RecordJudgment(ctx context.Context, j *Judgment, k *Case) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO justice.judgments (id, case_id, summary, decision, reasoning, judge_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		j.ID, j.CaseID, j.Summary, j.Decision, j.Reasoning, j.JudgeID, j.Status, j.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("case already has a judgment")
		}
		return errors.Wrap(err, "failed to save judgment")
	}

	_, err = tx.Exec(ctx, `
		UPDATE justice.cases
		SET status = $2, judgment_id = $3, closed_at = $4, updated_at = $5
		WHERE id = $1`,
		k.ID, k.Status, k.JudgmentID, k.ClosedAt, k.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update case")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}
