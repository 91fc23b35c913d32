package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/adhivakta/adhivakta-api/access"
	"github.com/adhivakta/adhivakta-api/models"
)

func testCase(party string, lawyers ...string) *models.Case {
	return &models.Case{
		ID: primitive.NewObjectID(),
		Details: models.CaseDetails{
			Party:   party,
			Lawyers: lawyers,
		},
	}
}

func TestCanRead(t *testing.T) {
	e := access.Evaluator{}
	kase := testCase("client-1", "lawyer-1", "associate-1")

	assert.True(t, e.CanRead(access.Caller{ID: "client-1", Role: models.RoleClient}, kase))
	assert.True(t, e.CanRead(access.Caller{ID: "lawyer-1", Role: models.RoleLawyer}, kase))
	assert.True(t, e.CanRead(access.Caller{ID: "associate-1", Role: models.RoleAssociate}, kase))
	assert.True(t, e.CanRead(access.Caller{ID: "anyone", Role: models.RoleAdmin}, kase))

	assert.False(t, e.CanRead(access.Caller{ID: "client-2", Role: models.RoleClient}, kase))
	assert.False(t, e.CanRead(access.Caller{ID: "lawyer-2", Role: models.RoleLawyer}, kase))
}

func TestCanManageHearings(t *testing.T) {
	kase := testCase("client-1", "lawyer-1", "associate-1")

	e := access.Evaluator{}
	assert.True(t, e.CanManageHearings(access.Caller{ID: "lawyer-1", Role: models.RoleLawyer}, kase))
	assert.True(t, e.CanManageHearings(access.Caller{ID: "x", Role: models.RoleAdmin}, kase))
	assert.False(t, e.CanManageHearings(access.Caller{ID: "client-1", Role: models.RoleClient}, kase))
	assert.False(t, e.CanManageHearings(access.Caller{ID: "lawyer-2", Role: models.RoleLawyer}, kase))

	// associates only with the flag on
	assert.False(t, e.CanManageHearings(access.Caller{ID: "associate-1", Role: models.RoleAssociate}, kase))
	e = access.Evaluator{AllowAssociateCounsel: true}
	assert.True(t, e.CanManageHearings(access.Caller{ID: "associate-1", Role: models.RoleAssociate}, kase))
}

func TestWriteAccess(t *testing.T) {
	e := access.Evaluator{}
	kase := testCase("client-1", "lawyer-1", "associate-1")

	assert.Equal(t, access.WriteFull, e.WriteAccess(access.Caller{ID: "client-1", Role: models.RoleClient}, kase))
	assert.Equal(t, access.WriteFull, e.WriteAccess(access.Caller{ID: "x", Role: models.RoleAdmin}, kase))
	assert.Equal(t, access.WriteRestricted, e.WriteAccess(access.Caller{ID: "lawyer-1", Role: models.RoleLawyer}, kase))
	assert.Equal(t, access.WriteNone, e.WriteAccess(access.Caller{ID: "lawyer-2", Role: models.RoleLawyer}, kase))
	assert.Equal(t, access.WriteNone, e.WriteAccess(access.Caller{ID: "client-2", Role: models.RoleClient}, kase))
	assert.Equal(t, access.WriteNone, e.WriteAccess(access.Caller{ID: "associate-1", Role: models.RoleAssociate}, kase))

	e = access.Evaluator{AllowAssociateCounsel: true}
	assert.Equal(t, access.WriteRestricted, e.WriteAccess(access.Caller{ID: "associate-1", Role: models.RoleAssociate}, kase))
}

func TestAuthorizedPatchRestrictedDropsFields(t *testing.T) {
	e := access.Evaluator{}
	title := "new title"
	status := "active"
	party := "someone-else"
	closingDate := "2025-03-01"
	lawyers := []string{"lawyer-9"}

	patch := models.CasePatch{
		Title:       &title,
		Status:      &status,
		Party:       &party,
		ClosingDate: &closingDate,
		Lawyers:     &lawyers,
	}

	restricted := e.AuthorizedPatch(access.WriteRestricted, patch)
	assert.Nil(t, restricted.Title, "title must be dropped for restricted writers")
	assert.Nil(t, restricted.Party, "party must be dropped for restricted writers")
	assert.Nil(t, restricted.ClosingDate, "closingDate must be dropped for restricted writers")
	assert.Equal(t, &status, restricted.Status)
	assert.Equal(t, &lawyers, restricted.Lawyers)

	full := e.AuthorizedPatch(access.WriteFull, patch)
	assert.Equal(t, patch, full)
}

func TestListFilter(t *testing.T) {
	e := access.Evaluator{}

	scope := e.ListFilter(access.Caller{ID: "admin-1", Role: models.RoleAdmin}, "p-1", "l-1")
	assert.Equal(t, access.ListScope{PartyID: "p-1", LawyerID: "l-1"}, scope)

	// non-admin filters are overridden with the caller's own id
	scope = e.ListFilter(access.Caller{ID: "client-1", Role: models.RoleClient}, "p-1", "l-1")
	assert.Equal(t, access.ListScope{PartyID: "client-1"}, scope)

	scope = e.ListFilter(access.Caller{ID: "lawyer-1", Role: models.RoleLawyer}, "p-1", "l-1")
	assert.Equal(t, access.ListScope{LawyerID: "lawyer-1"}, scope)
}
