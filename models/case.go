package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CaseStatus is the canonical case status set. The two schema variants in the
// wild (open/pending vs active-only) are collapsed into this single set.
type CaseStatus string

// Case statuses. Closed and dismissed are terminal.
const (
	StatusOpen      CaseStatus = "open"
	StatusActive    CaseStatus = "active"
	StatusPending   CaseStatus = "pending"
	StatusClosed    CaseStatus = "closed"
	StatusDismissed CaseStatus = "dismissed"
	StatusAppealed  CaseStatus = "appealed"
)

// ParseCaseStatus validates a raw status string
func ParseCaseStatus(s string) (CaseStatus, error) {
	switch CaseStatus(s) {
	case StatusOpen, StatusActive, StatusPending, StatusClosed, StatusDismissed, StatusAppealed:
		return CaseStatus(s), nil
	}
	return "", fmt.Errorf("invalid case status %q", s)
}

// Terminal reports whether a case in this status has reached the end of its
// lifecycle. Terminal cases never transition again.
func (s CaseStatus) Terminal() bool {
	return s == StatusClosed || s == StatusDismissed
}

// NonTerminalStatuses returns every status a live case can hold
func NonTerminalStatuses() []CaseStatus {
	return []CaseStatus{StatusOpen, StatusActive, StatusPending, StatusAppealed}
}

// CaseTypes lists the accepted case type values
var CaseTypes = []string{"civil", "criminal", "family", "corporate", "property", "labor", "other"}

// CourtTypes lists the accepted court type values
var CourtTypes = []string{"supreme", "high", "district", "commercial", "family"}

// Priorities lists the accepted priority values
var Priorities = []string{"low", "medium", "high", "critical"}

// Case holds the structure for the cases collection in mongo
type Case struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details CaseDetails        `json:"case" bson:"case"`
	Version int32              `json:"__v" bson:"__v"`
}

// CaseDetails holds the inner case structure. Party is the client on whose
// behalf the case was opened; Lawyers holds the ids of assigned counsel.
// CaseNumber is assigned exactly once at creation and never mutated.
type CaseDetails struct {
	CaseNumber  string     `json:"caseNumber" bson:"caseNumber"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	CaseType    string     `json:"caseType" bson:"caseType"`
	Status      CaseStatus `json:"status" bson:"status"`
	Priority    string     `json:"priority" bson:"priority"`
	CourtType   string     `json:"courtType,omitempty" bson:"courtType,omitempty"`
	Court       Court      `json:"court" bson:"court"`

	Party                string        `json:"party" bson:"party"`
	Defendant            Defendant     `json:"defendant" bson:"defendant"`
	Lawyers              []string      `json:"lawyers" bson:"lawyers"`
	SeniorCounsel        bool          `json:"seniorCounsel" bson:"seniorCounsel"`
	Stakeholders         []Stakeholder `json:"stakeholders" bson:"stakeholders"`
	CounselForRespondent []Counsel     `json:"counselForRespondent" bson:"counselForRespondent"`

	Hearings     []Hearing `json:"hearings" bson:"hearings"`
	Documents    []string  `json:"documents" bson:"documents"`
	RelatedCases []string  `json:"relatedCases" bson:"relatedCases"`
	Tags         []string  `json:"tags" bson:"tags"`

	Outcome     string              `json:"outcome,omitempty" bson:"outcome,omitempty"`
	ClosingDate *primitive.DateTime `json:"closingDate,omitempty" bson:"closingDate,omitempty"`

	StatusChangedAt *primitive.DateTime `json:"statusChangedAt,omitempty" bson:"statusChangedAt,omitempty"`
	CreatedAt       primitive.DateTime  `json:"createdAt" bson:"createdAt"`
	UpdatedAt       primitive.DateTime  `json:"updatedAt" bson:"updatedAt"`
}

// Court is the embedded court metadata for a case
type Court struct {
	Name           string `json:"name" bson:"name"`
	Location       string `json:"location" bson:"location"`
	Judge          string `json:"judge,omitempty" bson:"judge,omitempty"`
	AdditionalInfo string `json:"additionalInfo,omitempty" bson:"additionalInfo,omitempty"`
}

// Defendant is the opposing party; contact info only, no user account
type Defendant struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty"`
}

// Stakeholder is a named third party with an interest in the case
type Stakeholder struct {
	Name     string `json:"name" bson:"name"`
	Email    string `json:"email,omitempty" bson:"email,omitempty"`
	Phone    string `json:"phone,omitempty" bson:"phone,omitempty"`
	Relation string `json:"relation,omitempty" bson:"relation,omitempty"`
}

// Counsel is opposing counsel contact info
type Counsel struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty"`
	Firm  string `json:"firm,omitempty" bson:"firm,omitempty"`
}

// Hearing is a single (past or scheduled) hearing on a case. Hearings are
// append-only: once recorded they are historical record and never rewritten.
type Hearing struct {
	Date    primitive.DateTime `json:"date" bson:"date"`
	Purpose string             `json:"purpose" bson:"purpose"`
	Outcome string             `json:"outcome,omitempty" bson:"outcome,omitempty"`
	Notes   string             `json:"notes,omitempty" bson:"notes,omitempty"`
}

// CasePatch is the update-request shape for a case. Nil means "not supplied".
// CaseNumber and CreatedAt are deliberately absent: they are immutable.
type CasePatch struct {
	Title                *string        `json:"title"`
	Description          *string        `json:"description"`
	CaseType             *string        `json:"caseType"`
	Status               *string        `json:"status"`
	Priority             *string        `json:"priority"`
	CourtType            *string        `json:"courtType"`
	Court                *Court         `json:"court"`
	Party                *string        `json:"party"`
	Defendant            *Defendant     `json:"defendant"`
	Lawyers              *[]string      `json:"lawyerIds"`
	SeniorCounsel        *bool          `json:"seniorCounsel"`
	Stakeholders         *[]Stakeholder `json:"stakeholders"`
	CounselForRespondent *[]Counsel     `json:"counselForRespondent"`
	RelatedCases         *[]string      `json:"relatedCases"`
	Tags                 *[]string      `json:"tags"`
	Outcome              *string        `json:"outcome"`
	ClosingDate          *string        `json:"closingDate"`
}
