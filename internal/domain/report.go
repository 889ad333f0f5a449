package domain

import "time"

// ReportStatus enumerates lifecycle states for reports.
type ReportStatus string

const (
	ReportStatusNew        ReportStatus = "New"
	ReportStatusInProgress ReportStatus = "In Progress"
	ReportStatusResolved   ReportStatus = "Resolved"
)

// ReportPriority enumerates how urgent an issue is.
type ReportPriority string

const (
	ReportPriorityLow      ReportPriority = "Low"
	ReportPriorityMedium   ReportPriority = "Medium"
	ReportPriorityHigh     ReportPriority = "High"
	ReportPriorityCritical ReportPriority = "Critical"
)

var statusRanks = map[ReportStatus]int{
	ReportStatusNew:        0,
	ReportStatusInProgress: 1,
	ReportStatusResolved:   2,
}

var priorityRanks = map[ReportPriority]int{
	ReportPriorityCritical: 0,
	ReportPriorityHigh:     1,
	ReportPriorityMedium:   2,
	ReportPriorityLow:      3,
}

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	_, ok := statusRanks[s]
	return ok
}

// Rank orders statuses New < In Progress < Resolved. Unknown values sort last.
func (s ReportStatus) Rank() int {
	if rank, ok := statusRanks[s]; ok {
		return rank
	}
	return len(statusRanks)
}

// Valid reports whether p is a known priority.
func (p ReportPriority) Valid() bool {
	_, ok := priorityRanks[p]
	return ok
}

// Rank orders priorities most urgent first. Unknown values sort last.
func (p ReportPriority) Rank() int {
	if rank, ok := priorityRanks[p]; ok {
		return rank
	}
	return len(priorityRanks)
}

// Report is a single factory issue record.
type Report struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Location           string         `json:"location"`
	Latitude           float64        `json:"latitude"`
	Longitude          float64        `json:"longitude"`
	Priority           ReportPriority `json:"priority"`
	Status             ReportStatus   `json:"status"`
	AssignedTechnician *string        `json:"assignedTechnician,omitempty"`
	Timestamp          time.Time      `json:"timestamp"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share the technician pointer.
func (r Report) Clone() Report {
	if r.AssignedTechnician != nil {
		name := *r.AssignedTechnician
		r.AssignedTechnician = &name
	}
	return r
}

// ReportStats is a derived count of reports by status.
type ReportStats struct {
	Total      int `json:"total"`
	New        int `json:"new"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
}

// Add counts one report with the given status.
func (s *ReportStats) Add(status ReportStatus) {
	s.Total++
	switch status {
	case ReportStatusNew:
		s.New++
	case ReportStatusInProgress:
		s.InProgress++
	case ReportStatusResolved:
		s.Resolved++
	}
}
