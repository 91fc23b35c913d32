package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/adhivakta/adhivakta-api/lifecycle"
	"github.com/adhivakta/adhivakta-api/models"
)

func manager() lifecycle.Manager {
	max, _ := time.Parse("2006-01-02", "2100-01-01")
	return lifecycle.Manager{MaxClosingDate: max}
}

func baseDetails() models.CaseDetails {
	created := primitive.NewDateTimeFromTime(time.Now().UTC().AddDate(0, -1, 0))
	return models.CaseDetails{
		CaseNumber: "CS-25-0001",
		Title:      "Sharma v. Mehta",
		CaseType:   "civil",
		Status:     models.StatusOpen,
		Priority:   "medium",
		Party:      "client-1",
		Lawyers:    []string{"lawyer-1"},
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestValidateNewDefaults(t *testing.T) {
	m := manager()
	d := models.CaseDetails{
		Title:    "  Sharma v. Mehta ",
		CaseType: "civil",
		Party:    "client-1",
	}
	err := m.ValidateNew(&d)
	assert.NoError(t, err)
	assert.Equal(t, "Sharma v. Mehta", d.Title)
	assert.Equal(t, models.StatusOpen, d.Status)
	assert.Equal(t, "medium", d.Priority)
	assert.NotNil(t, d.Lawyers)
	assert.NotNil(t, d.Hearings)
	assert.Nil(t, d.ClosingDate)
}

func TestValidateNewRejections(t *testing.T) {
	m := manager()

	d := models.CaseDetails{CaseType: "civil", Party: "client-1"}
	assert.Error(t, m.ValidateNew(&d), "missing title")

	d = models.CaseDetails{Title: "x", CaseType: "space-law", Party: "client-1"}
	assert.Error(t, m.ValidateNew(&d), "bad case type")

	d = models.CaseDetails{Title: "x", CaseType: "civil"}
	assert.Error(t, m.ValidateNew(&d), "missing party")

	d = models.CaseDetails{Title: "x", CaseType: "civil", Party: "client-1", Status: models.StatusClosed}
	assert.Error(t, m.ValidateNew(&d), "terminal status at creation")
}

func TestMergeKeepsUnsuppliedFields(t *testing.T) {
	m := manager()
	base := baseDetails()
	title := "Amended title"

	merged, err := m.Merge(base, models.CasePatch{Title: &title})
	assert.NoError(t, err)
	assert.Equal(t, "Amended title", merged.Title)
	assert.Equal(t, base.Status, merged.Status)
	assert.Equal(t, base.CaseNumber, merged.CaseNumber)
	assert.Equal(t, base.Lawyers, merged.Lawyers)
}

func TestMergeDedupesLawyers(t *testing.T) {
	m := manager()
	lawyers := []string{"l1", "l2", "l1"}

	merged, err := m.Merge(baseDetails(), models.CasePatch{Lawyers: &lawyers})
	assert.NoError(t, err)
	assert.Equal(t, []string{"l1", "l2"}, merged.Lawyers)
}

func TestMergeRejectsBadStatus(t *testing.T) {
	m := manager()
	status := "archived"
	_, err := m.Merge(baseDetails(), models.CasePatch{Status: &status})
	assert.Error(t, err)
	assert.Equal(t, 400, models.StatusCode(err))
}

func TestValidateTerminalNoTransitions(t *testing.T) {
	m := manager()
	prev := baseDetails()
	prev.Status = models.StatusClosed

	next := prev
	next.Status = models.StatusOpen
	err := m.Validate(prev, next)
	assert.Error(t, err, "closed cases cannot reopen")

	next.Status = models.StatusDismissed
	assert.Error(t, m.Validate(prev, next), "closed cannot become dismissed")

	// a terminal case may be edited without touching status
	next.Status = models.StatusClosed
	closing := primitive.NewDateTimeFromTime(time.Now().UTC())
	next.ClosingDate = &closing
	assert.NoError(t, m.Validate(prev, next))
}

func TestValidateClosingRules(t *testing.T) {
	m := manager()
	prev := baseDetails()

	next := prev
	next.Status = models.StatusClosed
	assert.Error(t, m.Validate(prev, next), "closing requires a date")

	early := primitive.NewDateTimeFromTime(prev.CreatedAt.Time().AddDate(0, 0, -5))
	next.ClosingDate = &early
	assert.Error(t, m.Validate(prev, next), "closing before creation")

	late := primitive.NewDateTimeFromTime(m.MaxClosingDate.AddDate(0, 0, 1))
	next.ClosingDate = &late
	assert.Error(t, m.Validate(prev, next), "closing after the max")

	good := primitive.NewDateTimeFromTime(time.Now().UTC())
	next.ClosingDate = &good
	assert.NoError(t, m.Validate(prev, next))
}

func TestTouchStampsStatusChange(t *testing.T) {
	m := manager()
	prev := baseDetails()
	next := prev

	m.Touch(prev, &next)
	assert.Nil(t, next.StatusChangedAt, "no status change, no stamp")

	next.Status = models.StatusActive
	m.Touch(prev, &next)
	assert.NotNil(t, next.StatusChangedAt)
}

func TestValidateHearing(t *testing.T) {
	m := manager()

	err := m.ValidateHearing(models.Hearing{Date: primitive.NewDateTimeFromTime(time.Now().UTC().AddDate(0, 0, 7))})
	assert.Error(t, err, "purpose required")

	err = m.ValidateHearing(models.Hearing{
		Purpose: "First hearing",
		Date:    primitive.NewDateTimeFromTime(time.Now().UTC().AddDate(0, 0, -7)),
	})
	assert.Error(t, err, "past dates rejected")

	err = m.ValidateHearing(models.Hearing{
		Purpose: "First hearing",
		Date:    primitive.NewDateTimeFromTime(time.Now().UTC().AddDate(0, 0, 7)),
	})
	assert.NoError(t, err)
}

func TestNextHearing(t *testing.T) {
	m := manager()
	d := baseDetails()
	assert.Nil(t, m.NextHearing(d), "no hearings")

	past := primitive.NewDateTimeFromTime(time.Now().UTC().AddDate(0, 0, -1))
	near := primitive.NewDateTimeFromTime(time.Now().UTC().AddDate(0, 0, 3))
	far := primitive.NewDateTimeFromTime(time.Now().UTC().AddDate(0, 0, 30))
	d.Hearings = []models.Hearing{
		{Date: far, Purpose: "final arguments"},
		{Date: past, Purpose: "first hearing"},
		{Date: near, Purpose: "evidence"},
	}

	next := m.NextHearing(d)
	assert.NotNil(t, next)
	assert.Equal(t, "evidence", next.Purpose)

	d.Hearings = []models.Hearing{{Date: past, Purpose: "first hearing"}}
	assert.Nil(t, m.NextHearing(d), "all hearings in the past")
}

func TestTimelineOrder(t *testing.T) {
	m := manager()
	d := baseDetails()
	h1 := primitive.NewDateTimeFromTime(d.CreatedAt.Time().AddDate(0, 0, 10))
	h2 := primitive.NewDateTimeFromTime(d.CreatedAt.Time().AddDate(0, 0, 20))
	d.Hearings = []models.Hearing{
		{Date: h1, Purpose: "first hearing", Outcome: "adjourned"},
		{Date: h2, Purpose: "evidence"},
	}
	changed := primitive.NewDateTimeFromTime(d.CreatedAt.Time().AddDate(0, 0, 25))
	d.StatusChangedAt = &changed
	d.Status = models.StatusActive

	events := m.Timeline(d)
	assert.Len(t, events, 4)
	assert.Equal(t, "Status changed to active", events[0].Event)
	assert.Equal(t, "Hearing", events[1].Event)
	assert.Equal(t, "Case filed", events[3].Event)
	for i := 1; i < len(events); i++ {
		assert.True(t, events[i-1].Date >= events[i].Date, "events must be newest first")
	}
}
