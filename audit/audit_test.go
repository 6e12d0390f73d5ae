package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/recordstore/dialect/sql"
)

type invoice struct {
	ID int64
	Fields
	WorkflowFields
}

func TestStampInsertThenUpdate(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, BusinessZone)
	t1 := t0.Add(26 * time.Hour)

	r := &invoice{}
	r.IsDeleted = true
	StampForInsert(r, "alice", t0)
	assert.Equal(t, "alice", r.CreatedUser)
	assert.Equal(t, t0, r.CreatedDateTime)
	assert.Equal(t, "alice", r.ModifiedUser)
	assert.False(t, r.IsDeleted)

	StampForUpdate(r, "bob", t1)
	assert.Equal(t, "alice", r.CreatedUser)
	assert.Equal(t, t0, r.CreatedDateTime)
	assert.Equal(t, "bob", r.ModifiedUser)
	assert.Equal(t, t1, r.ModifiedDateTime)
}

func TestStampKeepsGivenTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
	r := &invoice{}
	StampForInsert(r, "alice", now)
	assert.True(t, r.CreatedDateTime.Equal(now))
	assert.Equal(t, time.UTC, r.CreatedDateTime.Location())
}

func TestBusinessZone(t *testing.T) {
	_, offset := Now().Zone()
	assert.Equal(t, 7*60*60, offset)

	fixed := time.Date(2024, 12, 31, 20, 30, 0, 0, time.UTC)
	s := NewStamper(func() time.Time { return fixed })
	got := s.Now()
	assert.True(t, got.Equal(fixed))
	assert.Equal(t, 2025, got.Year(), "20:30 UTC is already the next day at UTC+7")
	assert.Equal(t, 3, got.Hour())

	var zero *Stamper
	_, offset = zero.Now().Zone()
	assert.Equal(t, 7*60*60, offset)
}

func TestStamper(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, BusinessZone)
	clock := t0
	s := &Stamper{Clock: func() time.Time { return clock }}

	r := &invoice{}
	assert.Equal(t, t0, s.Insert(r, "alice"))
	clock = t0.Add(time.Hour)
	s.Update(r, "bob")
	assert.Equal(t, t0, r.CreatedDateTime)
	assert.Equal(t, clock, r.ModifiedDateTime)
}

func TestCopyStamps(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, BusinessZone)
	root, child := &invoice{}, &invoice{}
	StampForInsert(root, "alice", t0)
	child.IsDeleted = true
	CopyStamps(child, root)
	assert.Equal(t, root.Fields.CreatedUser, child.CreatedUser)
	assert.Equal(t, root.Fields.ModifiedDateTime, child.ModifiedDateTime)
	assert.True(t, child.IsDeleted)

	StampForUpdate(root, "bob", t0.Add(time.Minute))
	existing := &invoice{Fields: Fields{CreatedUser: "carol", CreatedDateTime: t0.Add(-time.Hour)}}
	CopyModifiedStamps(existing, root)
	assert.Equal(t, "carol", existing.CreatedUser)
	assert.Equal(t, "bob", existing.ModifiedUser)
}

func TestInjectSoftDeleteFilter(t *testing.T) {
	in := []sql.Condition{sql.FieldEQ("Code", "A")}
	out := InjectSoftDeleteFilter(in)
	require.Len(t, out, 2)
	assert.Len(t, in, 1)

	c := sql.NewComposer()
	require.NoError(t, sql.Where(c, "t", out...))
	assert.Equal(t, "WHERE t.IsDeleted = @p1 AND t.Code = @p2", c.Fragment(sql.TokenWhere))
	v, _ := c.Value("p1")
	assert.Equal(t, false, v)

	assert.Len(t, InjectSoftDeleteFilter(nil), 1)
}

func TestUserContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
	u, ok := UserFromContext(WithUser(context.Background(), "alice"))
	assert.True(t, ok)
	assert.Equal(t, "alice", u)
	_, ok = UserFromContext(WithUser(context.Background(), ""))
	assert.False(t, ok)
}

func TestWorkflow(t *testing.T) {
	var r Workflowable = &invoice{}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, BusinessZone)
	Approve(r, 3, "manager", now)
	assert.True(t, r.Workflow().Approved())
	assert.Equal(t, int64(3), r.Workflow().StatusID)
	assert.Equal(t, "manager", r.Workflow().ApprovedUser)

	Transition(r, 1)
	assert.False(t, r.Workflow().Approved())
	assert.Empty(t, r.Workflow().ApprovedUser)
}
