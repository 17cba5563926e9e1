package model

const (
	LeaveTypeAnnual = "leave"

	// DefaultLeaveCap is the number of leaves after which new applications are refused.
	DefaultLeaveCap = 27
)

// LeaveRequest is a single submitted application. Requests are never edited
// once appended to a LeaveRecord.
type LeaveRequest struct {
	Reason   string `bson:"reason" json:"reason"`
	Type     string `bson:"type" json:"type"`
	Date     string `bson:"date" json:"date"` // display date, e.g. 10/26/2026
	Comments string `bson:"comments" json:"comments"`
}

// LeaveRecord is the per-employee aggregate of leave usage.
type LeaveRecord struct {
	EmployeeID    string         `bson:"employeeId" json:"employeeId"`
	LeavesTaken   int            `bson:"leavesTaken" json:"leavesTaken"`
	LeaveRequests []LeaveRequest `bson:"leaveRequests" json:"leaveRequests"`
}

// Clone returns a deep copy so callers can't mutate a stored record.
func (r *LeaveRecord) Clone() *LeaveRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.LeaveRequests = append([]LeaveRequest(nil), r.LeaveRequests...)
	return &c
}

// LeaveSubmitted is published after a request has been committed.
type LeaveSubmitted struct {
	EmployeeID  string `json:"employee_id"`
	Date        string `json:"date"`
	Reason      string `json:"reason"`
	Comments    string `json:"comments"`
	LeavesTaken int    `json:"leaves_taken"`
	SubmittedAt string `json:"submitted_at"`
}
