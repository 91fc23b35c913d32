// Package notify persists notifications and fans them out over email and
// websocket. Persistence is the only delivery channel with guarantees: email
// and push are best-effort and their failures never surface to the caller.
package notify

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/adhivakta/adhivakta-api/databases"
	"github.com/adhivakta/adhivakta-api/models"
	templates "github.com/adhivakta/adhivakta-api/templates/html"
)

const deliveryTimeout = 15 * time.Second

// Dispatcher creates notifications and triggers their side channels
type Dispatcher struct {
	DB     databases.NotificationDatabase
	UDB    databases.UserDatabase
	Mailer Mailer
	Pusher Pusher
}

// Emit persists one notification per recipient and kicks off best-effort
// email and push delivery in the background. A persistence failure aborts;
// a delivery failure only logs.
func (d Dispatcher) Emit(ctx context.Context, recipients []string, details models.NotificationDetails) error {
	for _, userID := range dedupe(recipients) {
		n := models.Notification{
			ID:      primitive.NewObjectID(),
			Details: details,
			Version: 0,
		}
		n.Details.UserID = userID
		n.Details.Read = false
		n.Details.CreatedAt = primitive.NewDateTimeFromTime(time.Now().UTC())

		_, err := d.DB.InsertOne(ctx, n)
		if err != nil {
			return models.NewUnavailable("failed to persist notification", err)
		}
		go d.deliver(n)
	}
	return nil
}

// deliver runs the side channels for one stored notification
func (d Dispatcher) deliver(n models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if d.Pusher != nil {
		d.Pusher.Push(n.Details.UserID, n)
	}

	if d.Mailer == nil {
		return
	}
	oid, err := primitive.ObjectIDFromHex(n.Details.UserID)
	if err != nil {
		zap.S().Errorw("notification has malformed user id", "userId", n.Details.UserID)
		return
	}
	user, err := d.UDB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		zap.S().Errorw("failed to load notification recipient", "userId", n.Details.UserID, "error", err)
		return
	}
	if user.Details.Email == "" {
		return
	}
	html := templates.RenderGenericEmail(n.Details.Title, n.Details.Message)
	if err := d.Mailer.Send(user.Details.Email, user.Details.Name, n.Details.Title, html, n.Details.Message); err != nil {
		zap.S().Errorw("failed to email notification", "userId", n.Details.UserID, "error", err)
	}
}

// MarkRead flips the read flag on the caller's own notification. The filter
// includes the owner id so one user can never mark another's notification;
// a non-owned or missing id both come back as not found.
func (d Dispatcher) MarkRead(ctx context.Context, notificationID, userID string) (*models.Notification, error) {
	oid, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return nil, models.NewValidationError("invalid notification id")
	}
	n, err := d.DB.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "notification.userId": userID},
		bson.M{"$set": bson.M{"notification.read": true}, "$inc": bson.M{"__v": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.NewNotFound("notification not found")
		}
		return nil, models.NewUnavailable("failed to update notification", err)
	}
	return n, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
