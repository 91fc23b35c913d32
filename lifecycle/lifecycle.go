// Package lifecycle owns case state: creation defaults, patch merging, status
// transition rules, hearing bookkeeping, and the derived timeline/next-hearing
// views.
package lifecycle

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/adhivakta/adhivakta-api/models"
)

// Manager validates and evolves case records
type Manager struct {
	MaxClosingDate time.Time
}

// ValidateNew normalizes and validates a case at creation time. Title, case
// type and party are required; status defaults to open, priority to medium.
func (m Manager) ValidateNew(d *models.CaseDetails) error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return models.NewValidationError("title is required")
	}
	if !contains(models.CaseTypes, d.CaseType) {
		return models.NewValidationError(fmt.Sprintf("invalid case type %q", d.CaseType))
	}
	if d.Party == "" {
		return models.NewValidationError("party is required")
	}
	if d.Status == "" {
		d.Status = models.StatusOpen
	}
	if _, err := models.ParseCaseStatus(string(d.Status)); err != nil {
		return models.NewValidationError(err.Error())
	}
	if d.Status.Terminal() {
		return models.NewValidationError("a case cannot be created in a terminal status")
	}
	if d.Priority == "" {
		d.Priority = "medium"
	}
	if !contains(models.Priorities, d.Priority) {
		return models.NewValidationError(fmt.Sprintf("invalid priority %q", d.Priority))
	}
	if d.CourtType != "" && !contains(models.CourtTypes, d.CourtType) {
		return models.NewValidationError(fmt.Sprintf("invalid court type %q", d.CourtType))
	}
	if d.Lawyers == nil {
		d.Lawyers = []string{}
	}
	if d.Hearings == nil {
		d.Hearings = []models.Hearing{}
	}
	if d.Documents == nil {
		d.Documents = []string{}
	}
	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	d.CreatedAt = now
	d.UpdatedAt = now
	d.ClosingDate = nil
	d.StatusChangedAt = nil
	return nil
}

// Merge applies a patch over existing details and returns the merged copy.
// The base record is not modified. Unsupplied (nil) fields keep their current
// value; caseNumber and createdAt have no patch slot at all.
func (m Manager) Merge(base models.CaseDetails, patch models.CasePatch) (models.CaseDetails, error) {
	out := base
	if patch.Title != nil {
		out.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		out.Description = *patch.Description
	}
	if patch.CaseType != nil {
		out.CaseType = *patch.CaseType
	}
	if patch.Status != nil {
		s, err := models.ParseCaseStatus(*patch.Status)
		if err != nil {
			return out, models.NewValidationError(err.Error())
		}
		out.Status = s
	}
	if patch.Priority != nil {
		out.Priority = *patch.Priority
	}
	if patch.CourtType != nil {
		out.CourtType = *patch.CourtType
	}
	if patch.Court != nil {
		out.Court = *patch.Court
	}
	if patch.Party != nil {
		out.Party = *patch.Party
	}
	if patch.Defendant != nil {
		out.Defendant = *patch.Defendant
	}
	if patch.Lawyers != nil {
		out.Lawyers = dedupe(*patch.Lawyers)
	}
	if patch.SeniorCounsel != nil {
		out.SeniorCounsel = *patch.SeniorCounsel
	}
	if patch.Stakeholders != nil {
		out.Stakeholders = *patch.Stakeholders
	}
	if patch.CounselForRespondent != nil {
		out.CounselForRespondent = *patch.CounselForRespondent
	}
	if patch.RelatedCases != nil {
		out.RelatedCases = *patch.RelatedCases
	}
	if patch.Tags != nil {
		out.Tags = *patch.Tags
	}
	if patch.Outcome != nil {
		out.Outcome = *patch.Outcome
	}
	if patch.ClosingDate != nil {
		if *patch.ClosingDate == "" {
			out.ClosingDate = nil
		} else {
			t, err := parseDate(*patch.ClosingDate)
			if err != nil {
				return out, models.NewValidationError(fmt.Sprintf("invalid closingDate %q", *patch.ClosingDate))
			}
			dt := primitive.NewDateTimeFromTime(t)
			out.ClosingDate = &dt
		}
	}
	return out, nil
}

// Validate checks a merged record against the lifecycle rules:
//   - terminal cases never change status again, in any direction
//   - closing requires a closing date between creation and the configured max
//   - enum fields must hold accepted values
func (m Manager) Validate(prev models.CaseDetails, next models.CaseDetails) error {
	if next.Title == "" {
		return models.NewValidationError("title is required")
	}
	if !contains(models.CaseTypes, next.CaseType) {
		return models.NewValidationError(fmt.Sprintf("invalid case type %q", next.CaseType))
	}
	if !contains(models.Priorities, next.Priority) {
		return models.NewValidationError(fmt.Sprintf("invalid priority %q", next.Priority))
	}
	if next.CourtType != "" && !contains(models.CourtTypes, next.CourtType) {
		return models.NewValidationError(fmt.Sprintf("invalid court type %q", next.CourtType))
	}
	if next.Party == "" {
		return models.NewValidationError("party is required")
	}

	if prev.Status.Terminal() && next.Status != prev.Status {
		return models.NewValidationError(fmt.Sprintf("case is %s and cannot change status", prev.Status))
	}

	if next.Status == models.StatusClosed {
		if next.ClosingDate == nil {
			return models.NewValidationError("closingDate is required to close a case")
		}
		closing := next.ClosingDate.Time()
		if closing.Before(next.CreatedAt.Time()) {
			return models.NewValidationError("closingDate cannot precede case creation")
		}
		if closing.After(m.MaxClosingDate) {
			return models.NewValidationError(fmt.Sprintf("closingDate cannot be after %s", m.MaxClosingDate.Format("2006-01-02")))
		}
	}
	return nil
}

// Touch stamps updatedAt and, on a status change, statusChangedAt
func (m Manager) Touch(prev models.CaseDetails, next *models.CaseDetails) {
	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	next.UpdatedAt = now
	if next.Status != prev.Status {
		next.StatusChangedAt = &now
	}
}

// ValidateHearing checks a hearing before it is appended. Purpose is required
// and the date must not be in the past; recorded history never mutates, so
// back-dating a new hearing is rejected rather than merged.
func (m Manager) ValidateHearing(h models.Hearing) error {
	if strings.TrimSpace(h.Purpose) == "" {
		return models.NewValidationError("hearing purpose is required")
	}
	if h.Date.Time().Before(time.Now().UTC().Truncate(24 * time.Hour)) {
		return models.NewValidationError("hearing date cannot be in the past")
	}
	return nil
}

// NextHearing returns the earliest strictly future hearing, or nil when the
// schedule is empty or entirely in the past. The value is derived on read and
// never stored.
func (m Manager) NextHearing(d models.CaseDetails) *models.Hearing {
	now := time.Now().UTC()
	var next *models.Hearing
	for i := range d.Hearings {
		h := d.Hearings[i]
		if !h.Date.Time().After(now) {
			continue
		}
		if next == nil || h.Date < next.Date {
			next = &d.Hearings[i]
		}
	}
	return next
}

// TimelineEvent is a single entry in a case's derived history
type TimelineEvent struct {
	Date        primitive.DateTime `json:"date"`
	Event       string             `json:"event"`
	Description string             `json:"description,omitempty"`
}

// Timeline assembles the case history from creation, hearings and the last
// status change, most recent first.
func (m Manager) Timeline(d models.CaseDetails) []TimelineEvent {
	events := []TimelineEvent{
		{Date: d.CreatedAt, Event: "Case filed", Description: d.Title},
	}
	for _, h := range d.Hearings {
		desc := h.Purpose
		if h.Outcome != "" {
			desc = fmt.Sprintf("%s: %s", h.Purpose, h.Outcome)
		}
		events = append(events, TimelineEvent{Date: h.Date, Event: "Hearing", Description: desc})
	}
	if d.StatusChangedAt != nil {
		events = append(events, TimelineEvent{
			Date:  *d.StatusChangedAt,
			Event: fmt.Sprintf("Status changed to %s", d.Status),
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date > events[j].Date
	})
	return events
}

// parseDate accepts both date-only and RFC3339 timestamps
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
