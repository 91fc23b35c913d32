package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adhivakta/adhivakta-api/api"
	"github.com/adhivakta/adhivakta-api/config"
	"github.com/adhivakta/adhivakta-api/databases"
	"github.com/adhivakta/adhivakta-api/models"
	"github.com/adhivakta/adhivakta-api/notify"
)

// Notification exported for testing purposes
type Notification struct {
	DB         databases.NotificationDatabase
	Dispatcher notify.Dispatcher
	Hub        *notify.Hub
}

// NotificationsHandler returns the caller's notifications, newest first,
// with the unread count alongside
func (n Notification) NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || Limit <= 0 {
		Limit = 20
	}
	limit64 := int64(Limit)
	Page := getPage(0, r)
	skip64 := int64(Page * Limit)
	unreadOnly := r.URL.Query().Get("unread") == "true"

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{"notification.userId": who.ID}
	if unreadOnly {
		filter["notification.read"] = false
	}

	notifications, err := n.DB.Find(ctx, filter, &options.FindOptions{
		Limit: &limit64,
		Skip:  &skip64,
		Sort:  bson.M{"notification.createdAt": -1},
	})
	if err != nil {
		config.ErrorStatus("failed to get notifications", http.StatusInternalServerError, w, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	totalCount, err := n.DB.CountDocuments(ctx, filter)
	if err != nil {
		totalCount = int64(len(notifications))
	}
	unreadCount, err := n.DB.CountDocuments(ctx, bson.M{
		"notification.userId": who.ID,
		"notification.read":   false,
	})
	if err != nil {
		unreadCount = 0
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(Limit)))
	response := map[string]interface{}{
		"data":        notifications,
		"page":        Page,
		"limit":       Limit,
		"totalCount":  totalCount,
		"totalPages":  totalPages,
		"unreadCount": unreadCount,
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// MarkNotificationReadHandler marks one of the caller's notifications read.
// Another user's notification id comes back as not found, never forbidden.
func (n Notification) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	notificationID := mux.Vars(r)["notification_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	updated, err := n.Dispatcher.MarkRead(ctx, notificationID, who.ID)
	if err != nil {
		config.AppErrorStatus(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(updated)
}

// NotificationsWebSocketHandler registers the caller's websocket connection
// for real-time notification pushes
func (n Notification) NotificationsWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	n.Hub.Serve(who.ID, w, r)
}
