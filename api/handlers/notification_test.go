package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/adhivakta/adhivakta-api/api"
	"github.com/adhivakta/adhivakta-api/api/handlers"
	"github.com/adhivakta/adhivakta-api/databases/mocks"
	"github.com/adhivakta/adhivakta-api/models"
	"github.com/adhivakta/adhivakta-api/notify"
)

func TestNotificationsHandlerScopedToCaller(t *testing.T) {
	ndb := &mocks.NotificationDatabase{}
	var filter bson.M
	ndb.On("Find", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { filter = args.Get(1).(bson.M) }).
		Return([]models.Notification{
			{
				ID: primitive.NewObjectID(),
				Details: models.NotificationDetails{
					UserID:    "user-1",
					Type:      models.NotificationCaseUpdate,
					Title:     "Case updated",
					CreatedAt: primitive.NewDateTimeFromTime(time.Now().UTC()),
				},
			},
		}, nil)
	ndb.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(5), nil).Once()
	ndb.On("CountDocuments", mock.Anything, bson.M{
		"notification.userId": "user-1",
		"notification.read":   false,
	}).Return(int64(2), nil)

	n := handlers.Notification{DB: ndb}

	req := authedRequest("GET", "/api/v1/notifications", nil, api.Caller{ID: "user-1", Role: models.RoleClient})
	rr := httptest.NewRecorder()

	http.HandlerFunc(n.NotificationsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-1", filter["notification.userId"])

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, float64(5), resp["totalCount"])
	assert.Equal(t, float64(2), resp["unreadCount"])
}

func TestNotificationsHandlerUnreadFilter(t *testing.T) {
	ndb := &mocks.NotificationDatabase{}
	var filter bson.M
	ndb.On("Find", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { filter = args.Get(1).(bson.M) }).
		Return([]models.Notification{}, nil)
	ndb.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), nil)

	n := handlers.Notification{DB: ndb}

	req := authedRequest("GET", "/api/v1/notifications?unread=true", nil, api.Caller{ID: "user-1", Role: models.RoleClient})
	rr := httptest.NewRecorder()

	http.HandlerFunc(n.NotificationsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, filter["notification.read"])
}

func TestMarkNotificationReadHandler(t *testing.T) {
	oid := primitive.NewObjectID()
	ndb := &mocks.NotificationDatabase{}
	ndb.On("FindOneAndUpdate", mock.Anything,
		bson.M{"_id": oid, "notification.userId": "user-1"},
		mock.Anything, mock.Anything,
	).Return(&models.Notification{
		ID:      oid,
		Details: models.NotificationDetails{UserID: "user-1", Read: true},
	}, nil)

	n := handlers.Notification{Dispatcher: notify.Dispatcher{DB: ndb}}

	req := authedRequest("PATCH", "/api/v1/notifications/"+oid.Hex()+"/read", nil, api.Caller{ID: "user-1", Role: models.RoleClient})
	req = mux.SetURLVars(req, map[string]string{"notification_id": oid.Hex()})
	rr := httptest.NewRecorder()

	http.HandlerFunc(n.MarkNotificationReadHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"read":true`)
}

func TestMarkNotificationReadHandlerNotFoundForOtherUsers(t *testing.T) {
	oid := primitive.NewObjectID()
	ndb := &mocks.NotificationDatabase{}
	ndb.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, mongo.ErrNoDocuments)

	n := handlers.Notification{Dispatcher: notify.Dispatcher{DB: ndb}}

	req := authedRequest("PATCH", "/api/v1/notifications/"+oid.Hex()+"/read", nil, api.Caller{ID: "intruder", Role: models.RoleClient})
	req = mux.SetURLVars(req, map[string]string{"notification_id": oid.Hex()})
	rr := httptest.NewRecorder()

	http.HandlerFunc(n.MarkNotificationReadHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
