package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/peakfin/peakfin/internal/audit"
	"github.com/peakfin/peakfin/internal/finance"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for users, finance data, and the audit log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "peakfin.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Users ---

func (s *Store) CreateUser(u User) error {
	_, err := s.db.Exec(`
		INSERT INTO users (id, email, password_hash, full_name, monthly_net_income, risk_tolerance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.MonthlyNetIncome, u.RiskTolerance,
		u.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetUser(id string) (User, error) {
	var u User
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, email, password_hash, full_name, monthly_net_income, risk_tolerance, created_at
		FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.MonthlyNetIncome, &u.RiskTolerance, &createdAt)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return User{}, fmt.Errorf("parsing created_at: %w", err)
	}
	u.CreatedAt = t
	return u, nil
}

func (s *Store) GetUserByEmail(email string) (User, error) {
	var u User
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, email, password_hash, full_name, monthly_net_income, risk_tolerance, created_at
		FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.MonthlyNetIncome, &u.RiskTolerance, &createdAt)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return User{}, fmt.Errorf("parsing created_at: %w", err)
	}
	u.CreatedAt = t
	return u, nil
}

// --- Sessions ---

func (s *Store) CreateSession(sess Session) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)`,
		sess.Token, sess.UserID,
		sess.ExpiresAt.UTC().Format(time.RFC3339),
		sess.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetSession(token string) (Session, error) {
	var sess Session
	var expiresAt, createdAt string
	err := s.db.QueryRow(`
		SELECT token, user_id, expires_at, created_at
		FROM sessions WHERE token = ?`, token,
	).Scan(&sess.Token, &sess.UserID, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	if sess.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return Session{}, fmt.Errorf("parsing expires_at: %w", err)
	}
	if sess.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Session{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return sess, nil
}

func (s *Store) DeleteExpiredSessions(now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, now.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Expenses ---

func (s *Store) AddExpense(e Expense) error {
	_, err := s.db.Exec(`
		INSERT INTO expenses (id, user_id, category, amount, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Category, e.Amount, e.Note,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) ListExpenses(userID string) ([]Expense, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, category, amount, note, created_at
		FROM expenses WHERE user_id = ? ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Expense
	for rows.Next() {
		var e Expense
		var createdAt string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Category, &e.Amount, &e.Note, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		e.CreatedAt = t
		results = append(results, e)
	}
	return results, rows.Err()
}

// --- Debts ---

func (s *Store) AddDebt(d DebtAccount) error {
	_, err := s.db.Exec(`
		INSERT INTO debts (id, user_id, lender, principal, annual_rate_pct, current_emi, term_months, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.Lender, d.Principal, d.AnnualRatePct, d.CurrentEMI, d.TermMonths,
		d.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) ListDebts(userID string) ([]DebtAccount, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, lender, principal, annual_rate_pct, current_emi, term_months, created_at
		FROM debts WHERE user_id = ? ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DebtAccount
	for rows.Next() {
		var d DebtAccount
		var createdAt string
		if err := rows.Scan(&d.ID, &d.UserID, &d.Lender, &d.Principal, &d.AnnualRatePct, &d.CurrentEMI, &d.TermMonths, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		d.CreatedAt = t
		results = append(results, d)
	}
	return results, rows.Err()
}

// --- Goals ---

func (s *Store) AddGoal(g Goal) error {
	_, err := s.db.Exec(`
		INSERT INTO goals (id, user_id, name, target_amount, saved_amount, priority, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.TargetAmount, g.SavedAmount, g.Priority,
		g.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListGoals returns goals ordered by priority (lowest value first), then age.
func (s *Store) ListGoals(userID string) ([]Goal, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, name, target_amount, saved_amount, priority, created_at
		FROM goals WHERE user_id = ? ORDER BY priority ASC, created_at ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Goal
	for rows.Next() {
		var g Goal
		var createdAt string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.SavedAmount, &g.Priority, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		g.CreatedAt = t
		results = append(results, g)
	}
	return results, rows.Err()
}

// --- Transactions ---

// AddTransactions inserts an imported statement batch atomically so a failed
// import leaves no partial rows behind.
func (s *Store) AddTransactions(txs []Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO transactions (id, user_id, tx_date, description, category, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing transaction insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		if _, err := stmt.Exec(
			t.ID, t.UserID, t.Date, t.Description, t.Category, t.Amount,
			t.CreatedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("inserting transaction: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) ListTransactions(userID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, user_id, tx_date, description, category, amount, created_at
		FROM transactions WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Transaction
	for rows.Next() {
		var t Transaction
		var createdAt string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Date, &t.Description, &t.Category, &t.Amount, &createdAt); err != nil {
			return nil, err
		}
		ct, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		t.CreatedAt = ct
		results = append(results, t)
	}
	return results, rows.Err()
}

// --- Audit ---

// WriteAudit persists one audit record, assigning id and timestamp when the
// caller left them zero. The write ignores request cancellation: a client
// disconnect must not suppress the record.
func (s *Store) WriteAudit(ctx context.Context, rec audit.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(context.WithoutCancel(ctx), `
		INSERT INTO audit_log (id, user_ref, action, question, intent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserRef, rec.Action, rec.Question, rec.Intent,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

func (s *Store) ListAudit(userRef string, limit int) ([]audit.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, user_ref, action, question, intent, created_at
		FROM audit_log WHERE user_ref = ? ORDER BY created_at DESC LIMIT ?`, userRef, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []audit.Record
	for rows.Next() {
		var rec audit.Record
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.UserRef, &rec.Action, &rec.Question, &rec.Intent, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		rec.CreatedAt = t
		results = append(results, rec)
	}
	return results, rows.Err()
}

// --- Snapshot ---

// Snapshot assembles the advisory input for one user: income and risk
// tolerance from the account, expense amounts, debt balances with their
// installments, and the goal count.
func (s *Store) Snapshot(userID string) (finance.Snapshot, error) {
	u, err := s.GetUser(userID)
	if err != nil {
		return finance.Snapshot{}, err
	}
	expenses, err := s.ListExpenses(userID)
	if err != nil {
		return finance.Snapshot{}, err
	}
	debts, err := s.ListDebts(userID)
	if err != nil {
		return finance.Snapshot{}, err
	}
	var goalCount int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM goals WHERE user_id = ?", userID).Scan(&goalCount); err != nil {
		return finance.Snapshot{}, fmt.Errorf("counting goals: %w", err)
	}

	snap := finance.Snapshot{
		MonthlyNetIncome: u.MonthlyNetIncome,
		GoalCount:        goalCount,
		RiskTolerance:    u.RiskTolerance,
	}
	for _, e := range expenses {
		snap.Expenses = append(snap.Expenses, e.Amount)
	}
	for _, d := range debts {
		snap.Debts = append(snap.Debts, finance.Debt{Principal: d.Principal, Installment: d.CurrentEMI})
	}
	return snap, nil
}
