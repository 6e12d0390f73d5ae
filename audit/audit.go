// Package audit stamps created/modified metadata onto records and keeps
// soft-deleted rows out of reads.
//
// Records opt in by embedding Fields by value:
//
//	type Bank struct {
//	    ID   int64
//	    Code string
//	    audit.Fields
//	}
//
//	audit.StampForInsert(&bank, "alice", audit.Now())
//
// Timestamps use the business clock: a fixed UTC+7 offset, independent of
// the host time zone and of any time zone database.
package audit

import (
	"context"
	"time"
)

// Audit column names shared by every auditable table.
const (
	ColumnCreatedUser      = "CreatedUser"
	ColumnCreatedDateTime  = "CreatedDateTime"
	ColumnModifiedUser     = "ModifiedUser"
	ColumnModifiedDateTime = "ModifiedDateTime"
	ColumnIsDeleted        = "IsDeleted"
)

// BusinessZone is the fixed UTC+7 offset all audit timestamps are expressed in.
var BusinessZone = time.FixedZone("UTC+7", 7*60*60)

// Now returns the current business time.
func Now() time.Time {
	return time.Now().In(BusinessZone)
}

// Fields holds the audit and soft-delete columns of a record.
type Fields struct {
	CreatedUser      string    `json:"createdUser"`
	CreatedDateTime  time.Time `json:"createdDateTime"`
	ModifiedUser     string    `json:"modifiedUser"`
	ModifiedDateTime time.Time `json:"modifiedDateTime"`
	IsDeleted        bool      `json:"isDeleted"`
}

// AuditFields returns f, so every struct embedding Fields satisfies Auditable.
func (f *Fields) AuditFields() *Fields { return f }

// Auditable is implemented by records carrying audit fields.
type Auditable interface {
	AuditFields() *Fields
}

// StampForInsert sets the created and modified pairs to user and now and
// clears the soft-delete flag.
func StampForInsert(rec Auditable, user string, now time.Time) {
	f := rec.AuditFields()
	f.CreatedUser, f.CreatedDateTime = user, now
	f.ModifiedUser, f.ModifiedDateTime = user, now
	f.IsDeleted = false
}

// StampForUpdate sets the modified pair only.
func StampForUpdate(rec Auditable, user string, now time.Time) {
	f := rec.AuditFields()
	f.ModifiedUser, f.ModifiedDateTime = user, now
}

// CopyStamps copies both stamp pairs of src onto dst. The soft-delete flag
// of dst is kept.
func CopyStamps(dst, src Auditable) {
	d, s := dst.AuditFields(), src.AuditFields()
	d.CreatedUser, d.CreatedDateTime = s.CreatedUser, s.CreatedDateTime
	d.ModifiedUser, d.ModifiedDateTime = s.ModifiedUser, s.ModifiedDateTime
}

// CopyModifiedStamps copies the modified pair of src onto dst.
func CopyModifiedStamps(dst, src Auditable) {
	d, s := dst.AuditFields(), src.AuditFields()
	d.ModifiedUser, d.ModifiedDateTime = s.ModifiedUser, s.ModifiedDateTime
}

// Clock returns the current business time.
type Clock func() time.Time

// Stamper stamps records with a clock. The zero value uses Now.
type Stamper struct {
	Clock Clock
}

// NewStamper returns a Stamper reading time from clock.
func NewStamper(clock Clock) *Stamper {
	return &Stamper{Clock: clock}
}

// Now returns the stamper's current time in the business zone.
func (s *Stamper) Now() time.Time {
	if s == nil || s.Clock == nil {
		return Now()
	}
	return s.Clock().In(BusinessZone)
}

// Insert stamps rec for insertion and returns the time used.
func (s *Stamper) Insert(rec Auditable, user string) time.Time {
	now := s.Now()
	StampForInsert(rec, user, now)
	return now
}

// Update stamps rec for update and returns the time used.
func (s *Stamper) Update(rec Auditable, user string) time.Time {
	now := s.Now()
	StampForUpdate(rec, user, now)
	return now
}

type userKey struct{}

// WithUser returns a context carrying the audit user.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the audit user carried by ctx.
func UserFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(userKey{}).(string)
	return u, ok && u != ""
}
