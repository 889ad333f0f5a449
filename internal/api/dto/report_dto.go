package dto

import "github.com/spec-kit/factory-report-service/internal/domain"

// CreateReportRequest payload. Coordinates are pointers so that 0 is a valid
// value while an absent field still fails "required".
type CreateReportRequest struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description" validate:"required,max=4000"`
	Location    string                `json:"location" validate:"required,max=200"`
	Latitude    *float64              `json:"latitude" validate:"required,latitude"`
	Longitude   *float64              `json:"longitude" validate:"required,longitude"`
	Priority    domain.ReportPriority `json:"priority" validate:"required,oneof=Low Medium High Critical"`
}

// UpdateReportRequest is the partial body of PUT /reports/:id.
type UpdateReportRequest struct {
	Status             *domain.ReportStatus `json:"status" validate:"omitempty,oneof=New 'In Progress' Resolved"`
	AssignedTechnician *string              `json:"assignedTechnician" validate:"omitempty,max=200"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	AssignedTechnician string `json:"assignedTechnician" validate:"required,max=200"`
}

// ReportListQuery captures the query string of GET /reports.
type ReportListQuery struct {
	Status             string `query:"status"`
	Priority           string `query:"priority"`
	Location           string `query:"location"`
	Search             string `query:"search"`
	AssignedTechnician string `query:"assignedTechnician"`
	Sort               string `query:"sort"`
	Order              string `query:"order"`
}

// SuccessResponse acknowledges operations without a body.
type SuccessResponse struct {
	Success bool `json:"success"`
}
