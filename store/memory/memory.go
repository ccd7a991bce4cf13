// Package memory provides an in-memory leave.Store for tests and development.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	staff      map[string]leave.Staff
	companies  map[string]leave.Company
	templates  map[string]leave.Template
	leaves     map[string]leave.Request
	attendance map[string]leave.AttendanceRecord

	// seq orders requests created in the same instant.
	seq   map[string]int
	clock int
}

var _ leave.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		staff:      make(map[string]leave.Staff),
		companies:  make(map[string]leave.Company),
		templates:  make(map[string]leave.Template),
		leaves:     make(map[string]leave.Request),
		attendance: make(map[string]leave.AttendanceRecord),
		seq:        make(map[string]int),
	}
}

func newID() string { return uuid.NewString() }

// =============================================================================
// STAFF, COMPANIES, TEMPLATES
// =============================================================================

// SaveStaff upserts a staff member. An inline Template is saved too and
// linked by id.
func (m *Memory) SaveStaff(_ context.Context, s *leave.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == "" {
		s.ID = newID()
	}
	if s.Template != nil {
		if s.Template.ID == "" {
			s.Template.ID = newID()
		}
		m.templates[s.Template.ID] = cloneTemplate(*s.Template)
		s.TemplateID = s.Template.ID
	}
	stored := *s
	stored.Template = nil
	m.staff[s.ID] = stored
	return nil
}

func (m *Memory) FindStaff(_ context.Context, id string) (*leave.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.staff[id]
	if !ok {
		return nil, nil
	}
	if tmpl, ok := m.templates[s.TemplateID]; ok && s.TemplateID != "" {
		t := cloneTemplate(tmpl)
		s.Template = &t
	}
	return &s, nil
}

func (m *Memory) SaveCompany(_ context.Context, c *leave.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = newID()
	}
	stored := *c
	stored.Shifts = slices.Clone(c.Shifts)
	m.companies[c.ID] = stored
	return nil
}

func (m *Memory) FindCompany(_ context.Context, id string) (*leave.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.companies[id]
	if !ok {
		return nil, nil
	}
	c.Shifts = slices.Clone(c.Shifts)
	return &c, nil
}

func (m *Memory) SaveTemplate(_ context.Context, t *leave.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = newID()
	}
	m.templates[t.ID] = cloneTemplate(*t)
	return nil
}

func cloneTemplate(t leave.Template) leave.Template {
	t.LeaveTypes = slices.Clone(t.LeaveTypes)
	t.Limits = maps.Clone(t.Limits)
	t.Fields = maps.Clone(t.Fields)
	return t
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func (m *Memory) CreateLeave(_ context.Context, r *leave.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = newID()
	}
	m.clock++
	m.seq[r.ID] = m.clock
	m.leaves[r.ID] = *r
	return nil
}

func (m *Memory) SaveLeave(_ context.Context, r *leave.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.leaves[r.ID]; !ok {
		return &generic.NotFoundError{Kind: "leave", ID: r.ID}
	}
	m.leaves[r.ID] = *r
	return nil
}

func (m *Memory) GetLeave(_ context.Context, id string) (*leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.leaves[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Memory) DeleteLeave(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.leaves, id)
	delete(m.seq, id)
	return nil
}

// FindLeaves returns matching requests, newest first.
func (m *Memory) FindLeaves(_ context.Context, f leave.LeaveFilter) ([]leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := m.matchLocked(f)
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []leave.Request{}, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (m *Memory) CountLeaves(_ context.Context, f leave.LeaveFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matchLocked(f)), nil
}

func (m *Memory) matchLocked(f leave.LeaveFilter) []leave.Request {
	result := []leave.Request{}
	for _, r := range m.leaves {
		if f.Matches(&r) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return m.seq[a.ID] > m.seq[b.ID]
	})
	return result
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (m *Memory) FindAttendance(_ context.Context, staffID string, day generic.Period) (*leave.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.attendance {
		if rec.StaffID == staffID && day.Contains(rec.Date) {
			return &rec, nil
		}
	}
	return nil, nil
}

// CreateAttendance inserts a record. A second record for the same staff
// member and date is rejected.
func (m *Memory) CreateAttendance(_ context.Context, rec *leave.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.attendance {
		if existing.StaffID == rec.StaffID && existing.Date.Equal(rec.Date) {
			return &generic.ValidationError{
				Code:    "duplicate_attendance",
				Message: "attendance already recorded for " + rec.Date.String(),
			}
		}
	}
	if rec.ID == "" {
		rec.ID = newID()
	}
	m.attendance[rec.ID] = *rec
	return nil
}

func (m *Memory) SaveAttendance(_ context.Context, rec *leave.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.attendance[rec.ID]; !ok {
		return &generic.NotFoundError{Kind: "attendance", ID: rec.ID}
	}
	m.attendance[rec.ID] = *rec
	return nil
}

func (m *Memory) DeleteAttendance(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.attendance, id)
	return nil
}

// Attendance returns every record of a staff member ordered by date.
func (m *Memory) Attendance(staffID string) []leave.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []leave.AttendanceRecord
	for _, rec := range m.attendance {
		if rec.StaffID == staffID {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result
}

// Reset drops every record.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.staff = make(map[string]leave.Staff)
	m.companies = make(map[string]leave.Company)
	m.templates = make(map[string]leave.Template)
	m.leaves = make(map[string]leave.Request)
	m.attendance = make(map[string]leave.AttendanceRecord)
	m.seq = make(map[string]int)
	m.clock = 0
	return nil
}
