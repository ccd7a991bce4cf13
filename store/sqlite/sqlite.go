/*
Package sqlite provides a SQLite-backed implementation of the leave store
contracts.

PURPOSE:
  Implements leave.Store (staff, companies, templates, leave requests and
  attendance) on SQLite. The same schema carries over to other SQL engines
  with minor dialect changes.

KEY TABLES:
  staff:          Staff members and their template / shift assignment
  companies:      Companies with their shift list (JSON)
  templates:      Leave templates stored as template JSON (see factory)
  leave_requests: Leave requests; category_key holds the canonical category
  attendance:     One row per staff member per date

CATEGORY MATCHING:
  Requests are filtered on category_key = leave.CategoryKey(filter), so
  "Casual", "Casual Leave" and " casual " all hit the same rows.

DATES:
  Calendar dates are stored as YYYY-MM-DD text so range filters compare
  lexically. Timestamps use a fixed-width UTC layout for the same reason.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are pinned to a
  single connection, since every new connection would see an empty database.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - leave/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
  - store/mongo: MongoDB implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// timestampLayout is fixed-width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ leave.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		shifts_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		body_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		template_id TEXT,
		shift_name TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		company_id TEXT NOT NULL DEFAULT '',
		leave_type TEXT NOT NULL,
		category_key TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT,
		session TEXT,
		approved_by TEXT,
		approved_at TEXT,
		rejection_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: usage aggregation by staff, category and date range
	CREATE INDEX IF NOT EXISTS idx_leave_requests_staff_category
		ON leave_requests(staff_id, category_key, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_staff_created
		ON leave_requests(staff_id, created_at);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		company_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		punch_in TEXT,
		punch_out TEXT,
		work_hours REAL NOT NULL DEFAULT 0,
		approved_by TEXT,
		approved_at TEXT,
		remarks TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One attendance record per staff member per day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_staff_date
		ON attendance(staff_id, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes every row. Used when loading demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"attendance", "leave_requests", "staff", "templates", "companies"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// COMPANIES & TEMPLATES
// =============================================================================

// SaveCompany upserts a company.
func (s *Store) SaveCompany(ctx context.Context, c *leave.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	shifts := c.Shifts
	if shifts == nil {
		shifts = []leave.Shift{}
	}
	shiftsJSON, err := json.Marshal(shifts)
	if err != nil {
		return fmt.Errorf("encode shifts: %w", err)
	}

	query := `
		INSERT INTO companies (id, name, shifts_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			shifts_json = excluded.shifts_json
	`
	_, err = s.db.ExecContext(ctx, query, c.ID, c.Name, string(shiftsJSON), formatTimestamp(time.Now()))
	return err
}

// FindCompany retrieves a company by ID.
func (s *Store) FindCompany(ctx context.Context, id string) (*leave.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c leave.Company
	var shiftsJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, shifts_json FROM companies WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &shiftsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(shiftsJSON), &c.Shifts); err != nil {
		return nil, fmt.Errorf("decode shifts of company %s: %w", id, err)
	}
	return &c, nil
}

// SaveTemplate upserts a template.
func (s *Store) SaveTemplate(ctx context.Context, t *leave.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveTemplateLocked(ctx, t)
}

func (s *Store) saveTemplateLocked(ctx context.Context, t *leave.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	body, err := factory.MarshalTemplate(t)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}

	query := `
		INSERT INTO templates (id, name, body_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			body_json = excluded.body_json
	`
	_, err = s.db.ExecContext(ctx, query, t.ID, t.Name, string(body), formatTimestamp(time.Now()))
	return err
}

func (s *Store) findTemplateLocked(ctx context.Context, id string) (*leave.Template, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body_json FROM templates WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tmpl, err := factory.ParseTemplate([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("decode template %s: %w", id, err)
	}
	tmpl.ID = id
	return tmpl, nil
}

// =============================================================================
// STAFF
// =============================================================================

// SaveStaff upserts a staff member. An inline Template is saved too and
// linked by id.
func (s *Store) SaveStaff(ctx context.Context, st *leave.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.Template != nil {
		if err := s.saveTemplateLocked(ctx, st.Template); err != nil {
			return err
		}
		st.TemplateID = st.Template.ID
	}

	query := `
		INSERT INTO staff (id, company_id, name, template_id, shift_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_id = excluded.company_id,
			name = excluded.name,
			template_id = excluded.template_id,
			shift_name = excluded.shift_name
	`
	_, err := s.db.ExecContext(ctx, query,
		st.ID, st.CompanyID, st.Name, nullString(st.TemplateID), nullString(st.ShiftName),
		formatTimestamp(time.Now()),
	)
	return err
}

// FindStaff retrieves a staff member with the template resolved.
func (s *Store) FindStaff(ctx context.Context, id string) (*leave.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st leave.Staff
	var templateID, shiftName sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, company_id, name, template_id, shift_name FROM staff WHERE id = ?", id,
	).Scan(&st.ID, &st.CompanyID, &st.Name, &templateID, &shiftName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st.TemplateID = templateID.String
	st.ShiftName = shiftName.String

	if st.TemplateID != "" {
		tmpl, err := s.findTemplateLocked(ctx, st.TemplateID)
		if err != nil {
			return nil, err
		}
		st.Template = tmpl
	}
	return &st, nil
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const leaveColumns = `id, staff_id, company_id, leave_type, start_date, end_date, days, status,
	reason, session, approved_by, approved_at, rejection_reason, created_at, updated_at`

// CreateLeave inserts a new request, assigning an ID when empty.
func (s *Store) CreateLeave(ctx context.Context, r *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	query := `
		INSERT INTO leave_requests (id, staff_id, company_id, leave_type, category_key,
			start_date, end_date, days, status, reason, session, approved_by, approved_at,
			rejection_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.StaffID, r.CompanyID, r.Category, leave.CategoryKey(r.Category),
		r.Start.String(), r.End.String(), r.Days.String(), string(r.Status),
		nullString(r.Reason), nullString(r.Session), r.ApprovedBy, formatOptional(r.ApprovedAt),
		r.RejectionReason, formatTimestamp(r.CreatedAt), formatTimestamp(r.UpdatedAt),
	)
	return err
}

// SaveLeave updates an existing request.
func (s *Store) SaveLeave(ctx context.Context, r *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE leave_requests SET
			leave_type = ?, category_key = ?, start_date = ?, end_date = ?, days = ?,
			status = ?, reason = ?, session = ?, approved_by = ?, approved_at = ?,
			rejection_reason = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		r.Category, leave.CategoryKey(r.Category), r.Start.String(), r.End.String(), r.Days.String(),
		string(r.Status), nullString(r.Reason), nullString(r.Session), r.ApprovedBy,
		formatOptional(r.ApprovedAt), r.RejectionReason, formatTimestamp(r.UpdatedAt),
		r.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "leave", ID: r.ID}
	}
	return nil
}

// GetLeave retrieves a request by ID.
func (s *Store) GetLeave(ctx context.Context, id string) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+leaveColumns+" FROM leave_requests WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	reqs, err := scanLeaves(rows)
	if err != nil || len(reqs) == 0 {
		return nil, err
	}
	return &reqs[0], nil
}

// DeleteLeave removes a request.
func (s *Store) DeleteLeave(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM leave_requests WHERE id = ?", id)
	return err
}

// FindLeaves returns matching requests, newest first.
func (s *Store) FindLeaves(ctx context.Context, f leave.LeaveFilter) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := leaveWhere(f)
	query := "SELECT " + leaveColumns + " FROM leave_requests" + where +
		" ORDER BY created_at DESC, rowid DESC"
	switch {
	case f.Limit > 0:
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	case f.Offset > 0:
		query += " LIMIT -1 OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanLeaves(rows)
}

// CountLeaves counts matching requests, ignoring paging.
func (s *Store) CountLeaves(ctx context.Context, f leave.LeaveFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := leaveWhere(f)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leave_requests"+where, args...).Scan(&n)
	return n, err
}

// leaveWhere translates a filter into a WHERE clause.
func leaveWhere(f leave.LeaveFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.StaffID != "" {
		clauses = append(clauses, "staff_id = ?")
		args = append(args, f.StaffID)
	}
	if f.Category != "" {
		clauses = append(clauses, "category_key = ?")
		args = append(args, leave.CategoryKey(f.Category))
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			marks[i] = "?"
			args = append(args, strings.ToLower(string(st)))
		}
		clauses = append(clauses, "LOWER(status) IN ("+strings.Join(marks, ", ")+")")
	}
	if f.ExcludeID != "" {
		clauses = append(clauses, "id <> ?")
		args = append(args, f.ExcludeID)
	}
	if f.Overlap != nil {
		clauses = append(clauses, "start_date <= ? AND end_date >= ?")
		args = append(args, f.Overlap.End.String(), f.Overlap.Start.String())
	}
	if f.Search != "" {
		like := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		clauses = append(clauses, `(LOWER(leave_type) LIKE ? ESCAPE '\' OR LOWER(COALESCE(reason, '')) LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanLeaves(rows *sql.Rows) ([]leave.Request, error) {
	defer rows.Close()

	requests := []leave.Request{}
	for rows.Next() {
		var r leave.Request
		var start, end, days, status, createdAt, updatedAt string
		var reason, session, approvedBy, approvedAt, rejection sql.NullString
		if err := rows.Scan(
			&r.ID, &r.StaffID, &r.CompanyID, &r.Category, &start, &end, &days, &status,
			&reason, &session, &approvedBy, &approvedAt, &rejection, &createdAt, &updatedAt,
		); err != nil {
			return nil, err
		}

		var err error
		if r.Start, err = generic.ParseDate(start); err != nil {
			return nil, fmt.Errorf("leave %s start_date: %w", r.ID, err)
		}
		if r.End, err = generic.ParseDate(end); err != nil {
			return nil, fmt.Errorf("leave %s end_date: %w", r.ID, err)
		}
		d, err := decimal.NewFromString(days)
		if err != nil {
			return nil, fmt.Errorf("leave %s days: %w", r.ID, err)
		}
		r.Days = generic.Amount{Value: d, Unit: generic.UnitDays}
		r.Status = leave.Status(status)
		r.Reason = reason.String
		r.Session = session.String
		r.ApprovedBy = optionalString(approvedBy)
		r.ApprovedAt = parseOptional(approvedAt)
		r.RejectionReason = optionalString(rejection)
		r.CreatedAt = parseTimestamp(createdAt)
		r.UpdatedAt = parseTimestamp(updatedAt)

		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// =============================================================================
// ATTENDANCE
// =============================================================================

const attendanceColumns = `id, staff_id, company_id, date, status, punch_in, punch_out, work_hours,
	approved_by, approved_at, remarks, created_at, updated_at`

// FindAttendance returns the staff member's record dated within day.
func (s *Store) FindAttendance(ctx context.Context, staffID string, day generic.Period) (*leave.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec leave.AttendanceRecord
	var date, status, createdAt, updatedAt string
	var punchIn, punchOut, approvedBy, approvedAt sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE staff_id = ? AND date BETWEEN ? AND ? ORDER BY date LIMIT 1",
		staffID, day.Start.String(), day.End.String(),
	).Scan(
		&rec.ID, &rec.StaffID, &rec.CompanyID, &date, &status, &punchIn, &punchOut, &rec.WorkHours,
		&approvedBy, &approvedAt, &rec.Remarks, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if rec.Date, err = generic.ParseDate(date); err != nil {
		return nil, fmt.Errorf("attendance %s date: %w", rec.ID, err)
	}
	rec.Status = leave.AttendanceStatus(status)
	rec.PunchIn = parseOptional(punchIn)
	rec.PunchOut = parseOptional(punchOut)
	rec.ApprovedBy = optionalString(approvedBy)
	rec.ApprovedAt = parseOptional(approvedAt)
	rec.CreatedAt = parseTimestamp(createdAt)
	rec.UpdatedAt = parseTimestamp(updatedAt)
	return &rec, nil
}

// CreateAttendance inserts a record. A second record for the same staff
// member and date violates idx_attendance_staff_date.
func (s *Store) CreateAttendance(ctx context.Context, rec *leave.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	query := `
		INSERT INTO attendance (` + attendanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.StaffID, rec.CompanyID, rec.Date.String(), string(rec.Status),
		formatOptional(rec.PunchIn), formatOptional(rec.PunchOut), rec.WorkHours,
		rec.ApprovedBy, formatOptional(rec.ApprovedAt), rec.Remarks,
		formatTimestamp(rec.CreatedAt), formatTimestamp(rec.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return &generic.ValidationError{
			Code:    "duplicate_attendance",
			Message: "attendance already recorded for " + rec.Date.String(),
		}
	}
	return err
}

// SaveAttendance updates an existing record.
func (s *Store) SaveAttendance(ctx context.Context, rec *leave.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE attendance SET
			status = ?, punch_in = ?, punch_out = ?, work_hours = ?,
			approved_by = ?, approved_at = ?, remarks = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		string(rec.Status), formatOptional(rec.PunchIn), formatOptional(rec.PunchOut), rec.WorkHours,
		rec.ApprovedBy, formatOptional(rec.ApprovedAt), rec.Remarks, formatTimestamp(rec.UpdatedAt),
		rec.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "attendance", ID: rec.ID}
	}
	return nil
}

// DeleteAttendance removes a record.
func (s *Store) DeleteAttendance(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM attendance WHERE id = ?", id)
	return err
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func optionalString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(timestampLayout, s)
	return t
}

func formatOptional(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(*t), Valid: true}
}

func parseOptional(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTimestamp(ns.String)
	return &t
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
