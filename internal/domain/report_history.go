package domain

import "time"

// ReportChangeType captures what changed in a history entry.
type ReportChangeType string

const (
	ChangeTypeCreated  ReportChangeType = "CREATED"
	ChangeTypeStatus   ReportChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee ReportChangeType = "ASSIGNEE_CHANGE"
)

// ReportHistory is an immutable audit trail entry.
type ReportHistory struct {
	ID            string           `json:"id"`
	ReportID      string           `json:"reportId"`
	ChangedByID   string           `json:"changedById"`
	ChangedByName string           `json:"changedByName"`
	ChangeType    ReportChangeType `json:"changeType"`
	OldValue      map[string]any   `json:"oldValue,omitempty"`
	NewValue      map[string]any   `json:"newValue,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}
