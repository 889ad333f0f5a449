package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/factory-report-service/internal/api/dto"
	"github.com/spec-kit/factory-report-service/internal/auth"
	"github.com/spec-kit/factory-report-service/internal/domain"
	"github.com/spec-kit/factory-report-service/internal/query"
	"github.com/spec-kit/factory-report-service/internal/service"
	apperrors "github.com/spec-kit/factory-report-service/pkg/util/errorutil"
)

// ReportsHandler manages report endpoints.
type ReportsHandler struct {
	reports   *service.ReportService
	lifecycle *service.LifecycleService
	history   *service.HistoryService
	validate  *validator.Validate
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService, lifecycle *service.LifecycleService, history *service.HistoryService) *ReportsHandler {
	return &ReportsHandler{reports: reports, lifecycle: lifecycle, history: history, validate: newValidator()}
}

// ListReports GET /reports.
func (h *ReportsHandler) ListReports(c *fiber.Ctx) error {
	filter, sort, err := parseReportQuery(c)
	if err != nil {
		return err
	}
	reports, err := h.reports.ListReports(c.UserContext(), filter, sort)
	if err != nil {
		return err
	}
	return c.JSON(reports)
}

// CreateReport POST /reports.
func (h *ReportsHandler) CreateReport(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateReportRequest
	if err := bindJSON(c, h.validate, &req); err != nil {
		return err
	}

	report, err := h.reports.CreateReport(c.UserContext(), actor, service.CreateReportInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// Stats GET /reports/stats.
func (h *ReportsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.reports.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// GetReport GET /reports/:id.
func (h *ReportsHandler) GetReport(c *fiber.Ctx) error {
	report, err := h.reports.GetReport(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// UpdateReport PUT /reports/:id.
func (h *ReportsHandler) UpdateReport(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateReportRequest
	if err := bindJSON(c, h.validate, &req); err != nil {
		return err
	}
	report, err := h.lifecycle.ApplyUpdate(c.UserContext(), actor, c.Params("id"), service.UpdateReportInput{
		Status:             req.Status,
		AssignedTechnician: req.AssignedTechnician,
	})
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// DeleteReport DELETE /reports/:id.
func (h *ReportsHandler) DeleteReport(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	if err := h.lifecycle.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

// ClaimReport POST /reports/:id/claim.
func (h *ReportsHandler) ClaimReport(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	report, err := h.lifecycle.Claim(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// ResolveReport POST /reports/:id/resolve.
func (h *ReportsHandler) ResolveReport(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	report, err := h.lifecycle.Resolve(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// ReassignReport POST /reports/:id/reassign.
func (h *ReportsHandler) ReassignReport(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.ReassignRequest
	if err := bindJSON(c, h.validate, &req); err != nil {
		return err
	}
	report, err := h.lifecycle.Reassign(c.UserContext(), actor, c.Params("id"), req.AssignedTechnician)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// ReportHistory GET /reports/:id/history.
func (h *ReportsHandler) ReportHistory(c *fiber.Ctx) error {
	entries, err := h.history.ListHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

func parseReportQuery(c *fiber.Ctx) (query.Filter, query.Sort, error) {
	var q dto.ReportListQuery
	if err := c.QueryParser(&q); err != nil {
		return query.Filter{}, query.Sort{}, apperrors.NewValidationError("invalid query", map[string]any{"reason": err.Error()})
	}

	filter := query.Filter{
		LocationContains: strings.TrimSpace(q.Location),
		SearchText:       strings.TrimSpace(q.Search),
	}
	if raw := strings.TrimSpace(q.Status); raw != "" {
		status := domain.ReportStatus(raw)
		if !status.Valid() {
			return query.Filter{}, query.Sort{}, apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(q.Priority); raw != "" {
		priority := domain.ReportPriority(raw)
		if !priority.Valid() {
			return query.Filter{}, query.Sort{}, apperrors.NewValidationError("invalid priority", map[string]any{"priority": raw})
		}
		filter.Priority = &priority
	}
	if raw := strings.TrimSpace(q.AssignedTechnician); raw != "" {
		filter.AssignedTechnician = &raw
	}

	key, err := query.ParseSortKey(q.Sort)
	if err != nil {
		return query.Filter{}, query.Sort{}, apperrors.NewValidationError("invalid sort", map[string]any{"sort": q.Sort})
	}
	order, err := query.ParseSortOrder(q.Order)
	if err != nil {
		return query.Filter{}, query.Sort{}, apperrors.NewValidationError("invalid order", map[string]any{"order": q.Order})
	}
	return filter, query.Sort{Key: key, Order: order}, nil
}
