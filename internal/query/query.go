// Package query derives filtered, sorted views over a report collection.
// Nothing here mutates its input.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spec-kit/factory-report-service/internal/domain"
)

// SortKey names a report ordering.
type SortKey string

const (
	SortByDate               SortKey = "date"
	SortByTimestamp          SortKey = "timestamp"
	SortByStatus             SortKey = "status"
	SortByPriority           SortKey = "priority"
	SortByTitle              SortKey = "title"
	SortByLocation           SortKey = "location"
	SortByAssignedTechnician SortKey = "assignedTechnician"
)

// SortOrder selects the direction of a SortKey.
type SortOrder string

const (
	// OrderDefault uses the natural direction of the key: newest first for
	// dates, rank ascending for status and priority, A to Z for text.
	OrderDefault SortOrder = ""
	OrderAsc     SortOrder = "asc"
	OrderDesc    SortOrder = "desc"
)

// Filter restricts a report collection. Zero values mean no restriction and
// all set fields must match.
type Filter struct {
	Status             *domain.ReportStatus
	Priority           *domain.ReportPriority
	LocationContains   string
	SearchText         string
	AssignedTechnician *string
}

// Sort describes how to order a filtered view.
type Sort struct {
	Key   SortKey
	Order SortOrder
}

// ParseSortKey validates a client supplied sort key. Empty means date.
func ParseSortKey(raw string) (SortKey, error) {
	switch key := SortKey(strings.TrimSpace(raw)); key {
	case "":
		return SortByDate, nil
	case SortByDate, SortByTimestamp, SortByStatus, SortByPriority, SortByTitle, SortByLocation, SortByAssignedTechnician:
		return key, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", raw)
	}
}

// ParseSortOrder validates a client supplied direction.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(raw))); order {
	case OrderDefault, OrderAsc, OrderDesc:
		return order, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", raw)
	}
}

// Matches reports whether a single report passes every filter.
func (f Filter) Matches(report *domain.Report) bool {
	if f.Status != nil && report.Status != *f.Status {
		return false
	}
	if f.Priority != nil && report.Priority != *f.Priority {
		return false
	}
	if f.LocationContains != "" && !containsFold(report.Location, f.LocationContains) {
		return false
	}
	if f.SearchText != "" &&
		!containsFold(report.Title, f.SearchText) &&
		!containsFold(report.Description, f.SearchText) &&
		!containsFold(report.Location, f.SearchText) {
		return false
	}
	if f.AssignedTechnician != nil {
		if report.AssignedTechnician == nil || *report.AssignedTechnician != *f.AssignedTechnician {
			return false
		}
	}
	return true
}

// Apply returns the reports matching filter, preserving input order.
func Apply(reports []domain.Report, filter Filter) []domain.Report {
	out := make([]domain.Report, 0, len(reports))
	for i := range reports {
		if filter.Matches(&reports[i]) {
			out = append(out, reports[i])
		}
	}
	return out
}

// SortReports returns a sorted copy of reports. Equal keys keep input order.
func SortReports(reports []domain.Report, s Sort) []domain.Report {
	out := make([]domain.Report, len(reports))
	copy(out, reports)

	cmp := comparator(s.Key)
	descending := naturallyDescending(s.Key)
	switch s.Order {
	case OrderAsc:
		descending = false
	case OrderDesc:
		descending = true
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(&out[i], &out[j])
		if descending {
			return c > 0
		}
		return c < 0
	})
	return out
}

// View filters then sorts.
func View(reports []domain.Report, filter Filter, s Sort) []domain.Report {
	return SortReports(Apply(reports, filter), s)
}

func naturallyDescending(key SortKey) bool {
	return key == SortByDate || key == SortByTimestamp || key == ""
}

func comparator(key SortKey) func(a, b *domain.Report) int {
	switch key {
	case SortByStatus:
		return func(a, b *domain.Report) int { return a.Status.Rank() - b.Status.Rank() }
	case SortByPriority:
		return func(a, b *domain.Report) int { return a.Priority.Rank() - b.Priority.Rank() }
	case SortByTitle:
		return func(a, b *domain.Report) int { return strings.Compare(a.Title, b.Title) }
	case SortByLocation:
		return func(a, b *domain.Report) int { return strings.Compare(a.Location, b.Location) }
	case SortByAssignedTechnician:
		return func(a, b *domain.Report) int {
			return strings.Compare(technicianOf(a), technicianOf(b))
		}
	default:
		return func(a, b *domain.Report) int { return a.Timestamp.Compare(b.Timestamp) }
	}
}

func technicianOf(report *domain.Report) string {
	if report.AssignedTechnician == nil {
		return ""
	}
	return *report.AssignedTechnician
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
