package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rpggio/carwizard/internal/domain/session"
	"github.com/rpggio/carwizard/internal/repository"
)

// SessionRepository implements session.SessionRepository for SQLite
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session together with any steps it already carries.
func (r *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	row, err := encodeSessionRow(sess)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sessions (
			id, usage_tags, priority_tags, body_type, fuel_type, budget,
			recommended_car_ids, selected_car_id, user_agent, ip,
			created_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		sess.ID,
		row.usageTags,
		row.priorityTags,
		sess.BodyType,
		sess.FuelType,
		sess.Budget,
		row.recommendedCarIDs,
		sess.SelectedCarID,
		sess.Client.UserAgent,
		sess.Client.IP,
		sess.CreatedAt,
		sess.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	if err := insertSteps(ctx, tx, sess.ID, sess.History, 0); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// Get retrieves a session and its full step history by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	query := `
		SELECT
			id, usage_tags, priority_tags, body_type, fuel_type, budget,
			recommended_car_ids, selected_car_id, user_agent, ip,
			created_at, completed_at
		FROM sessions
		WHERE id = ?
	`

	var sess session.Session
	var usageTags, priorityTags, recommended string
	var bodyType, fuelType, selected sql.NullString
	var budget sql.NullInt64
	var completedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sess.ID,
		&usageTags,
		&priorityTags,
		&bodyType,
		&fuelType,
		&budget,
		&recommended,
		&selected,
		&sess.Client.UserAgent,
		&sess.Client.IP,
		&sess.CreatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if sess.UsageTags, err = decodeList(usageTags); err != nil {
		return nil, err
	}
	if sess.PriorityTags, err = decodeList(priorityTags); err != nil {
		return nil, err
	}
	if sess.RecommendedCarIDs, err = decodeList(recommended); err != nil {
		return nil, err
	}
	if bodyType.Valid {
		sess.BodyType = &bodyType.String
	}
	if fuelType.Valid {
		sess.FuelType = &fuelType.String
	}
	if selected.Valid {
		sess.SelectedCarID = &selected.String
	}
	if budget.Valid {
		sess.Budget = &budget.Int64
	}
	if completedAt.Valid {
		sess.CompletedAt = &completedAt.Time
	}

	history, err := r.listSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.History = history

	return &sess, nil
}

// Update overwrites the session row and appends the steps of sess.History
// that are not stored yet, in one transaction. If another writer already
// claimed the next history slot the update fails with repository.ErrConflict
// and nothing is written.
func (r *SessionRepository) Update(ctx context.Context, sess *session.Session) error {
	row, err := encodeSessionRow(sess)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE sessions SET
			usage_tags = ?,
			priority_tags = ?,
			body_type = ?,
			fuel_type = ?,
			budget = ?,
			recommended_car_ids = ?,
			selected_car_id = ?,
			completed_at = ?
		WHERE id = ?
	`
	result, err := tx.ExecContext(ctx, query,
		row.usageTags,
		row.priorityTags,
		sess.BodyType,
		sess.FuelType,
		sess.Budget,
		row.recommendedCarIDs,
		sess.SelectedCarID,
		sess.CompletedAt,
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	var stored int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_steps WHERE session_id = ?`, sess.ID,
	).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count session steps: %w", err)
	}
	if stored >= len(sess.History) {
		return repository.ErrConflict
	}

	if err := insertSteps(ctx, tx, sess.ID, sess.History, stored); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session update: %w", err)
	}
	return nil
}

func (r *SessionRepository) listSteps(ctx context.Context, sessionID string) ([]session.Step, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT step, action, data, created_at
		FROM session_steps
		WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session steps: %w", err)
	}
	defer rows.Close()

	steps := []session.Step{}
	for rows.Next() {
		var step session.Step
		var data string
		if err := rows.Scan(&step.Step, &step.Action, &data, &step.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan session step: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &step.Data); err != nil {
			return nil, fmt.Errorf("failed to decode session step: %w", err)
		}
		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session steps: %w", err)
	}
	return steps, nil
}

func insertSteps(ctx context.Context, tx *sql.Tx, sessionID string, history []session.Step, from int) error {
	for seq := from; seq < len(history); seq++ {
		step := history[seq]
		data, err := json.Marshal(step.Data)
		if err != nil {
			return fmt.Errorf("failed to encode session step: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_steps (session_id, seq, step, action, data, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sessionID, seq, step.Step, step.Action, string(data), step.Timestamp)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrConflict
			}
			// The session row is gone.
			if isForeignKeyViolation(err) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("failed to insert session step: %w", err)
		}
	}
	return nil
}

type sessionRow struct {
	usageTags         string
	priorityTags      string
	recommendedCarIDs string
}

func encodeSessionRow(sess *session.Session) (sessionRow, error) {
	var row sessionRow
	var err error
	if row.usageTags, err = encodeList(sess.UsageTags); err != nil {
		return row, err
	}
	if row.priorityTags, err = encodeList(sess.PriorityTags); err != nil {
		return row, err
	}
	if row.recommendedCarIDs, err = encodeList(sess.RecommendedCarIDs); err != nil {
		return row, err
	}
	return row, nil
}
