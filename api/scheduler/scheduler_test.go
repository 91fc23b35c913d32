package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/adhivakta/adhivakta-api/databases/mocks"
	"github.com/adhivakta/adhivakta-api/models"
	"github.com/adhivakta/adhivakta-api/notify"
)

func TestSendHearingRemindersNotifiesPartyAndCounsel(t *testing.T) {
	now := time.Now().UTC()
	kase := models.Case{
		ID: primitive.NewObjectID(),
		Details: models.CaseDetails{
			CaseNumber: "CS-25-0042",
			Status:     models.StatusActive,
			Party:      "client-1",
			Lawyers:    []string{"lawyer-1", "lawyer-2"},
			Hearings: []models.Hearing{
				{Date: primitive.NewDateTimeFromTime(now.Add(12 * time.Hour)), Purpose: "Mentions"},
				{Date: primitive.NewDateTimeFromTime(now.Add(72 * time.Hour)), Purpose: "Evidence"},
			},
		},
	}

	cdb := &mocks.CaseDatabase{}
	cdb.On("Find", mock.Anything, mock.Anything).Return([]models.Case{kase}, nil)

	ndb := &mocks.NotificationDatabase{}
	ndb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Notification")).Return(nil, nil)

	s := NewScheduler(cdb, notify.Dispatcher{DB: ndb})
	s.sendHearingReminders()

	// one reminder each for the party and both lawyers; the hearing three
	// days out is beyond the 24 hour window
	ndb.AssertNumberOfCalls(t, "InsertOne", 3)
}

func TestSendHearingRemindersSkipsWhenLookupFails(t *testing.T) {
	cdb := &mocks.CaseDatabase{}
	cdb.On("Find", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	ndb := &mocks.NotificationDatabase{}

	s := NewScheduler(cdb, notify.Dispatcher{DB: ndb})
	s.sendHearingReminders()

	ndb.AssertNotCalled(t, "InsertOne")
}
