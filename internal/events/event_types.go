package events

import (
	"time"

	"github.com/spec-kit/factory-report-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReportCreated    EventType = "report_created"
	EventReportClaimed    EventType = "report_claimed"
	EventReportResolved   EventType = "report_resolved"
	EventReportReassigned EventType = "report_reassigned"
	EventReportDeleted    EventType = "report_deleted"
)

// AllEventTypes lists every event a report can emit.
var AllEventTypes = []EventType{
	EventReportCreated,
	EventReportClaimed,
	EventReportResolved,
	EventReportReassigned,
	EventReportDeleted,
}

// Known reports whether t is one of AllEventTypes.
func (t EventType) Known() bool {
	for _, known := range AllEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Role domain.UserRole `json:"role"`
}

// ActorFromUser copies the fields events carry.
func ActorFromUser(user *domain.User) Actor {
	if user == nil {
		return Actor{}
	}
	return Actor{ID: user.ID, Name: user.Name, Role: user.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ReportID  string      `json:"report_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ReportCreatedPayload payload.
type ReportCreatedPayload struct {
	Title    string                `json:"title"`
	Location string                `json:"location"`
	Priority domain.ReportPriority `json:"priority"`
}

// ReportStatusChangedPayload payload for claim and resolve.
type ReportStatusChangedPayload struct {
	OldStatus          domain.ReportStatus `json:"old_status"`
	NewStatus          domain.ReportStatus `json:"new_status"`
	AssignedTechnician *string             `json:"assigned_technician,omitempty"`
}

// ReportReassignedPayload payload.
type ReportReassignedPayload struct {
	OldTechnician *string `json:"old_technician,omitempty"`
	NewTechnician string  `json:"new_technician"`
}

// ReportDeletedPayload payload.
type ReportDeletedPayload struct {
	Title string `json:"title"`
}
