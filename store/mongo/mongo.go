/*
Package mongo provides a MongoDB-backed implementation of the leave store
contracts.

COLLECTIONS:
  staff, companies, templates, leave_requests, attendance

  attendance carries a unique (staff_id, date) index, so a second record
  for the same day fails like it does on SQLite.

CATEGORY MATCHING:
  Requests store category_key next to the display name. Filters match the
  key, or the display name by case-insensitive pattern for documents
  written before category_key existed.

USAGE:
  store, err := mongo.New(ctx, "mongodb://localhost:27017", "leave")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close(ctx)

SEE ALSO:
  - leave/store.go: Interface definitions
  - store/sqlite: SQL implementation
*/
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Store implements leave.Store on a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	staff      *mongo.Collection
	companies  *mongo.Collection
	templates  *mongo.Collection
	leaves     *mongo.Collection
	attendance *mongo.Collection

	seq atomic.Int64
}

var _ leave.Store = (*Store)(nil)

// New connects, pings and ensures indexes.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:     client,
		db:         db,
		staff:      db.Collection("staff"),
		companies:  db.Collection("companies"),
		templates:  db.Collection("templates"),
		leaves:     db.Collection("leave_requests"),
		attendance: db.Collection("attendance"),
	}
	s.seq.Store(time.Now().UnixNano())

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.leaves.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "staff_id", Value: 1}, {Key: "category_key", Value: 1}, {Key: "start_date", Value: 1}}},
		{Keys: bson.D{{Key: "staff_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("create leave_requests indexes: %w", err)
	}

	if _, err := s.attendance.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "staff_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}); err != nil {
		return fmt.Errorf("create attendance indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Reset drops every document. Used when loading demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	for _, c := range []*mongo.Collection{s.attendance, s.leaves, s.staff, s.templates, s.companies} {
		if _, err := c.DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("reset %s: %w", c.Name(), err)
		}
	}
	return nil
}

func upsert(ctx context.Context, c *mongo.Collection, id string, doc any) error {
	_, err := c.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

// =============================================================================
// STAFF, COMPANIES, TEMPLATES
// =============================================================================

// SaveStaff upserts a staff member. An inline Template is saved too and
// linked by id.
func (s *Store) SaveStaff(ctx context.Context, st *leave.Staff) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.Template != nil {
		if err := s.SaveTemplate(ctx, st.Template); err != nil {
			return err
		}
		st.TemplateID = st.Template.ID
	}
	doc := staffDoc{ID: st.ID, CompanyID: st.CompanyID, Name: st.Name, TemplateID: st.TemplateID, ShiftName: st.ShiftName}
	if err := upsert(ctx, s.staff, st.ID, doc); err != nil {
		return fmt.Errorf("save staff: %w", err)
	}
	return nil
}

// FindStaff returns the staff member with Template resolved, or nil.
func (s *Store) FindStaff(ctx context.Context, id string) (*leave.Staff, error) {
	var doc staffDoc
	err := s.staff.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find staff: %w", err)
	}

	st := &leave.Staff{ID: doc.ID, CompanyID: doc.CompanyID, Name: doc.Name, TemplateID: doc.TemplateID, ShiftName: doc.ShiftName}
	if doc.TemplateID != "" {
		var tdoc templateDoc
		err := s.templates.FindOne(ctx, bson.M{"_id": doc.TemplateID}).Decode(&tdoc)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
		case err != nil:
			return nil, fmt.Errorf("find template: %w", err)
		default:
			st.Template = tdoc.toTemplate()
		}
	}
	return st, nil
}

func (s *Store) SaveCompany(ctx context.Context, c *leave.Company) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	shifts := c.Shifts
	if shifts == nil {
		shifts = []leave.Shift{}
	}
	if err := upsert(ctx, s.companies, c.ID, companyDoc{ID: c.ID, Name: c.Name, Shifts: shifts}); err != nil {
		return fmt.Errorf("save company: %w", err)
	}
	return nil
}

func (s *Store) FindCompany(ctx context.Context, id string) (*leave.Company, error) {
	var doc companyDoc
	err := s.companies.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find company: %w", err)
	}
	return &leave.Company{ID: doc.ID, Name: doc.Name, Shifts: doc.Shifts}, nil
}

func (s *Store) SaveTemplate(ctx context.Context, t *leave.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := upsert(ctx, s.templates, t.ID, toTemplateDoc(t)); err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func (s *Store) CreateLeave(ctx context.Context, r *leave.Request) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, err := s.leaves.InsertOne(ctx, toLeaveDoc(r, s.seq.Add(1))); err != nil {
		return fmt.Errorf("create leave: %w", err)
	}
	return nil
}

// SaveLeave replaces the request, keeping its insertion sequence.
func (s *Store) SaveLeave(ctx context.Context, r *leave.Request) error {
	set := toLeaveDoc(r, 0)
	update := bson.M{"$set": bson.M{
		"leave_type":       set.LeaveType,
		"category_key":     set.CategoryKey,
		"start_date":       set.StartDate,
		"end_date":         set.EndDate,
		"days":             set.Days,
		"status":           set.Status,
		"reason":           set.Reason,
		"session":          set.Session,
		"approved_by":      set.ApprovedBy,
		"approved_at":      set.ApprovedAt,
		"rejection_reason": set.RejectionReason,
		"updated_at":       set.UpdatedAt,
	}}
	res, err := s.leaves.UpdateOne(ctx, bson.M{"_id": r.ID}, update)
	if err != nil {
		return fmt.Errorf("save leave: %w", err)
	}
	if res.MatchedCount == 0 {
		return &generic.NotFoundError{Kind: "leave", ID: r.ID}
	}
	return nil
}

func (s *Store) GetLeave(ctx context.Context, id string) (*leave.Request, error) {
	var doc leaveDoc
	err := s.leaves.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find leave: %w", err)
	}
	r, err := doc.toRequest()
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) DeleteLeave(ctx context.Context, id string) error {
	if _, err := s.leaves.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete leave: %w", err)
	}
	return nil
}

// FindLeaves returns matching requests, newest first.
func (s *Store) FindLeaves(ctx context.Context, f leave.LeaveFilter) ([]leave.Request, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}})
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cursor, err := s.leaves.Find(ctx, leaveQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find leaves: %w", err)
	}
	var docs []leaveDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode leaves: %w", err)
	}

	requests := make([]leave.Request, 0, len(docs))
	for _, doc := range docs {
		r, err := doc.toRequest()
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, nil
}

func (s *Store) CountLeaves(ctx context.Context, f leave.LeaveFilter) (int, error) {
	n, err := s.leaves.CountDocuments(ctx, leaveQuery(f))
	if err != nil {
		return 0, fmt.Errorf("count leaves: %w", err)
	}
	return int(n), nil
}

// leaveQuery translates a filter into a query document.
func leaveQuery(f leave.LeaveFilter) bson.D {
	q := bson.D{}
	var and bson.A

	if f.StaffID != "" {
		q = append(q, bson.E{Key: "staff_id", Value: f.StaffID})
	}
	if f.Category != "" {
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"category_key": leave.CategoryKey(f.Category)},
			bson.M{"leave_type": bson.Regex{Pattern: leave.CategoryPattern(f.Category), Options: "i"}},
		}})
	}
	if len(f.Statuses) > 0 {
		names := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			names[i] = regexp.QuoteMeta(string(st))
		}
		q = append(q, bson.E{Key: "status", Value: bson.Regex{Pattern: "^(" + strings.Join(names, "|") + ")$", Options: "i"}})
	}
	if f.ExcludeID != "" {
		q = append(q, bson.E{Key: "_id", Value: bson.M{"$ne": f.ExcludeID}})
	}
	if f.Overlap != nil {
		q = append(q,
			bson.E{Key: "start_date", Value: bson.M{"$lte": f.Overlap.End.String()}},
			bson.E{Key: "end_date", Value: bson.M{"$gte": f.Overlap.Start.String()}},
		)
	}
	if f.Search != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"leave_type": pattern},
			bson.M{"reason": pattern},
		}})
	}

	if len(and) > 0 {
		q = append(q, bson.E{Key: "$and", Value: and})
	}
	return q
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (s *Store) FindAttendance(ctx context.Context, staffID string, day generic.Period) (*leave.AttendanceRecord, error) {
	var doc attendanceDoc
	err := s.attendance.FindOne(ctx, bson.M{
		"staff_id": staffID,
		"date":     bson.M{"$gte": day.Start.String(), "$lte": day.End.String()},
	}, options.FindOne().SetSort(bson.D{{Key: "date", Value: 1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return doc.toRecord()
}

// CreateAttendance inserts a record. A second record for the same staff
// member and date violates the unique index.
func (s *Store) CreateAttendance(ctx context.Context, rec *leave.AttendanceRecord) error {
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

	_, err := s.attendance.InsertOne(ctx, toAttendanceDoc(rec))
	if mongo.IsDuplicateKeyError(err) {
		return &generic.ValidationError{
			Code:    "duplicate_attendance",
			Message: "attendance already recorded for " + rec.Date.String(),
		}
	}
	if err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

func (s *Store) SaveAttendance(ctx context.Context, rec *leave.AttendanceRecord) error {
	res, err := s.attendance.ReplaceOne(ctx, bson.M{"_id": rec.ID}, toAttendanceDoc(rec))
	if err != nil {
		return fmt.Errorf("save attendance: %w", err)
	}
	if res.MatchedCount == 0 {
		return &generic.NotFoundError{Kind: "attendance", ID: rec.ID}
	}
	return nil
}

func (s *Store) DeleteAttendance(ctx context.Context, id string) error {
	if _, err := s.attendance.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}
