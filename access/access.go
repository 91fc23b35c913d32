// Package access decides who may see or mutate a case and its documents.
// Every authorization answer in the system comes from here; handlers resolve
// not-found before asking, so an evaluator "no" always means 403, never 404.
package access

import (
	"github.com/adhivakta/adhivakta-api/models"
)

// Evaluator answers read/write questions for a caller against a case
type Evaluator struct {
	AllowAssociateCounsel bool
}

// Caller is the authenticated identity attached to a request
type Caller struct {
	ID   string
	Role models.Role
}

// CanRead grants access iff the caller is the case's party, one of its
// assigned lawyers, or an admin. Document visibility follows the same rule.
func (e Evaluator) CanRead(caller Caller, c *models.Case) bool {
	switch caller.Role {
	case models.RoleAdmin:
		return true
	case models.RoleClient:
		return c.Details.Party == caller.ID
	case models.RoleLawyer, models.RoleAssociate:
		if c.Details.Party == caller.ID {
			return true
		}
		return assigned(caller.ID, c)
	}
	return false
}

// CanManageHearings reports whether the caller may append hearings: assigned
// counsel or admin only.
func (e Evaluator) CanManageHearings(caller Caller, c *models.Case) bool {
	switch caller.Role {
	case models.RoleAdmin:
		return true
	case models.RoleLawyer:
		return assigned(caller.ID, c)
	case models.RoleAssociate:
		return e.AllowAssociateCounsel && assigned(caller.ID, c)
	}
	return false
}

// CanUploadDocument mirrors read access at the moment of upload
func (e Evaluator) CanUploadDocument(caller Caller, c *models.Case) bool {
	return e.CanRead(caller, c)
}

// WriteLevel describes how much of a case a caller may mutate
type WriteLevel int

// Write levels, from none to unrestricted.
const (
	WriteNone WriteLevel = iota
	WriteRestricted
	WriteFull
)

// WriteAccess resolves the caller's write level on a case. The owning party
// and admins get the full field set; assigned counsel get the allow-listed
// subset; everyone else gets nothing.
func (e Evaluator) WriteAccess(caller Caller, c *models.Case) WriteLevel {
	switch caller.Role {
	case models.RoleAdmin:
		return WriteFull
	case models.RoleClient:
		if c.Details.Party == caller.ID {
			return WriteFull
		}
	case models.RoleLawyer:
		if assigned(caller.ID, c) {
			return WriteRestricted
		}
	case models.RoleAssociate:
		if e.AllowAssociateCounsel && assigned(caller.ID, c) {
			return WriteRestricted
		}
	}
	return WriteNone
}

// AuthorizedPatch trims a patch down to the fields the write level permits.
// Restricted writers keep only {status, outcome, lawyers, seniorCounsel};
// everything else is dropped silently so that forms submitting a full record
// still work.
func (e Evaluator) AuthorizedPatch(level WriteLevel, patch models.CasePatch) models.CasePatch {
	if level == WriteFull {
		return patch
	}
	return models.CasePatch{
		Status:        patch.Status,
		Outcome:       patch.Outcome,
		Lawyers:       patch.Lawyers,
		SeniorCounsel: patch.SeniorCounsel,
	}
}

// ListScope is the ownership filter applied to case list queries
type ListScope struct {
	PartyID  string
	LawyerID string
}

// ListFilter gates the admin-only petitionerId/lawyerId query filters: admins
// pass them through, every other role has its own id substituted silently.
func (e Evaluator) ListFilter(caller Caller, partyID, lawyerID string) ListScope {
	if caller.Role == models.RoleAdmin {
		return ListScope{PartyID: partyID, LawyerID: lawyerID}
	}
	if caller.Role == models.RoleClient {
		return ListScope{PartyID: caller.ID}
	}
	return ListScope{LawyerID: caller.ID}
}

func assigned(userID string, c *models.Case) bool {
	for _, l := range c.Details.Lawyers {
		if l == userID {
			return true
		}
	}
	return false
}
