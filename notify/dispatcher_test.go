package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/adhivakta/adhivakta-api/databases/mocks"
	"github.com/adhivakta/adhivakta-api/models"
	"github.com/adhivakta/adhivakta-api/notify"
)

func TestEmitPersistsPerRecipient(t *testing.T) {
	db := &mocks.NotificationDatabase{}
	db.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Notification")).Return(nil, nil)

	d := notify.Dispatcher{DB: db}
	err := d.Emit(context.Background(), []string{"user-1", "user-2", "user-1", ""}, models.NotificationDetails{
		Type:    models.NotificationCaseUpdate,
		Title:   "Case updated",
		Message: "something changed",
	})

	assert.NoError(t, err)
	db.AssertNumberOfCalls(t, "InsertOne", 2)
}

func TestEmitFailsWhenPersistenceFails(t *testing.T) {
	db := &mocks.NotificationDatabase{}
	db.On("InsertOne", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))

	d := notify.Dispatcher{DB: db}
	err := d.Emit(context.Background(), []string{"user-1"}, models.NotificationDetails{
		Type:  models.NotificationGeneral,
		Title: "hello",
	})

	assert.Error(t, err)
	assert.Equal(t, 503, models.StatusCode(err))
}

func TestMarkReadScopedToOwner(t *testing.T) {
	db := &mocks.NotificationDatabase{}
	oid := primitive.NewObjectID()
	updated := &models.Notification{
		ID: oid,
		Details: models.NotificationDetails{
			UserID: "user-1",
			Read:   true,
		},
	}
	db.On("FindOneAndUpdate", mock.Anything,
		bson.M{"_id": oid, "notification.userId": "user-1"},
		mock.Anything, mock.Anything,
	).Return(updated, nil)

	d := notify.Dispatcher{DB: db}
	n, err := d.MarkRead(context.Background(), oid.Hex(), "user-1")

	assert.NoError(t, err)
	assert.True(t, n.Details.Read)
}

func TestMarkReadNotFoundForOtherUsers(t *testing.T) {
	db := &mocks.NotificationDatabase{}
	db.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, mongo.ErrNoDocuments)

	d := notify.Dispatcher{DB: db}
	_, err := d.MarkRead(context.Background(), primitive.NewObjectID().Hex(), "intruder")

	assert.Error(t, err)
	assert.Equal(t, 404, models.StatusCode(err))
}

func TestMarkReadRejectsMalformedID(t *testing.T) {
	d := notify.Dispatcher{}
	_, err := d.MarkRead(context.Background(), "not-an-oid", "user-1")

	assert.Error(t, err)
	assert.Equal(t, 400, models.StatusCode(err))
}
