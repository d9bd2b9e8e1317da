package goal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Goal is one committed goal row. Written exactly once per completed session
// and never updated by this subsystem afterward.
type Goal struct {
	ID          string
	OrgID       string
	UserID      string
	Title       string
	Description string
	Type        Type
	TargetValue *float64
	TargetUnit  string
	PeriodStart time.Time
	PeriodEnd   time.Time
	CreatedAt   time.Time
}

// Registrar persists goals to SQLite.
type Registrar struct {
	db *sql.DB
}

// NewRegistrar opens (and if needed creates) the goal database.
func NewRegistrar(dbPath string) (*Registrar, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create goal database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open goal database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping goal database: %w", err)
	}

	r := &Registrar{db: db}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize goal schema: %w", err)
	}
	return r, nil
}

func (r *Registrar) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		goal_type TEXT NOT NULL,
		target_value REAL,
		target_unit TEXT,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(org_id, user_id);`
	_, err := r.db.Exec(query)
	return err
}

// Close closes the underlying database.
func (r *Registrar) Close() error {
	return r.db.Close()
}

// Register inserts exactly one goal row built from the three recorded answers.
// The monthly period is anchored to now; the WHAT answer supplies the title
// and the parsed target.
func (r *Registrar) Register(ctx context.Context, id, orgID, userID string, why, what, how string, now time.Time) (*Goal, error) {
	target := ParseTarget(what)
	start, end := PeriodFor(now)

	g := &Goal{
		ID:          id,
		OrgID:       orgID,
		UserID:      userID,
		Title:       strings.TrimSpace(what),
		Description: fmt.Sprintf("Why: %s\nHow: %s", strings.TrimSpace(why), strings.TrimSpace(how)),
		Type:        target.Type,
		TargetUnit:  target.Unit,
		PeriodStart: start,
		PeriodEnd:   end,
		CreatedAt:   now,
	}
	if target.Type == TypeNumeric {
		v := target.Value
		g.TargetValue = &v
	}

	query := `INSERT INTO goals (id, org_id, user_id, title, description, goal_type, target_value, target_unit, period_start, period_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		g.ID,
		g.OrgID,
		g.UserID,
		g.Title,
		g.Description,
		string(g.Type),
		nullableFloat(g.TargetValue),
		g.TargetUnit,
		g.PeriodStart.Format(time.RFC3339),
		g.PeriodEnd.Format(time.RFC3339),
		g.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting goal: %w", err)
	}
	return g, nil
}

// GetByID fetches one goal row.
func (r *Registrar) GetByID(ctx context.Context, id string) (*Goal, error) {
	query := `SELECT id, org_id, user_id, title, description, goal_type, target_value, target_unit, period_start, period_end, created_at
		FROM goals WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	var g Goal
	var goalType string
	var targetValue sql.NullFloat64
	var startStr, endStr, createdStr string

	err := row.Scan(&g.ID, &g.OrgID, &g.UserID, &g.Title, &g.Description, &goalType, &targetValue, &g.TargetUnit, &startStr, &endStr, &createdStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning goal: %w", err)
	}

	g.Type = Type(goalType)
	if targetValue.Valid {
		v := targetValue.Float64
		g.TargetValue = &v
	}
	if g.PeriodStart, err = time.Parse(time.RFC3339, startStr); err != nil {
		return nil, fmt.Errorf("parsing period start: %w", err)
	}
	if g.PeriodEnd, err = time.Parse(time.RFC3339, endStr); err != nil {
		return nil, fmt.Errorf("parsing period end: %w", err)
	}
	if g.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return nil, fmt.Errorf("parsing created at: %w", err)
	}
	return &g, nil
}

// ListByUser fetches all goals registered for one user, newest first.
func (r *Registrar) ListByUser(ctx context.Context, orgID, userID string) ([]Goal, error) {
	query := `SELECT id, org_id, user_id, title, description, goal_type, target_value, target_unit, period_start, period_end, created_at
		FROM goals WHERE org_id = ? AND user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, orgID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer rows.Close()

	var goals []Goal
	for rows.Next() {
		var g Goal
		var goalType string
		var targetValue sql.NullFloat64
		var startStr, endStr, createdStr string

		if err := rows.Scan(&g.ID, &g.OrgID, &g.UserID, &g.Title, &g.Description, &goalType, &targetValue, &g.TargetUnit, &startStr, &endStr, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		g.Type = Type(goalType)
		if targetValue.Valid {
			v := targetValue.Float64
			g.TargetValue = &v
		}
		if g.PeriodStart, err = time.Parse(time.RFC3339, startStr); err != nil {
			return nil, fmt.Errorf("parsing period start: %w", err)
		}
		if g.PeriodEnd, err = time.Parse(time.RFC3339, endStr); err != nil {
			return nil, fmt.Errorf("parsing period end: %w", err)
		}
		if g.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
			return nil, fmt.Errorf("parsing created at: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
