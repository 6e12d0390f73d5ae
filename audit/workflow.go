package audit

import "time"

// Workflow column names.
const (
	ColumnStatusID         = "StatusId"
	ColumnApprovedUser     = "ApprovedUser"
	ColumnApprovedDateTime = "ApprovedDateTime"
)

// WorkflowFields is the optional status and approval block of records that
// pass through an approval flow.
type WorkflowFields struct {
	StatusID         int64      `json:"statusId"`
	ApprovedUser     string     `json:"approvedUser,omitempty"`
	ApprovedDateTime *time.Time `json:"approvedDateTime,omitempty"`
}

// Workflow returns w, so every struct embedding WorkflowFields satisfies
// Workflowable.
func (w *WorkflowFields) Workflow() *WorkflowFields { return w }

// Workflowable is implemented by records carrying workflow fields.
type Workflowable interface {
	Workflow() *WorkflowFields
}

// Approved reports whether the record carries an approval stamp.
func (w *WorkflowFields) Approved() bool {
	return w.ApprovedDateTime != nil
}

// Approve moves rec to status and records the approver.
func Approve(rec Workflowable, status int64, user string, now time.Time) {
	w := rec.Workflow()
	w.StatusID = status
	w.ApprovedUser = user
	w.ApprovedDateTime = &now
}

// Transition moves rec to status and clears any approval stamp.
func Transition(rec Workflowable, status int64) {
	w := rec.Workflow()
	w.StatusID = status
	w.ApprovedUser = ""
	w.ApprovedDateTime = nil
}
