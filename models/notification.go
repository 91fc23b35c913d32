package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType classifies what a notification is about
type NotificationType string

// Notification types.
const (
	NotificationCaseUpdate      NotificationType = "case_update"
	NotificationHearingReminder NotificationType = "hearing_reminder"
	NotificationDocumentUpload  NotificationType = "document_upload"
	NotificationGeneral         NotificationType = "general"
)

// ParseNotificationType validates a raw notification type string
func ParseNotificationType(s string) (NotificationType, error) {
	switch NotificationType(s) {
	case NotificationCaseUpdate, NotificationHearingReminder, NotificationDocumentUpload, NotificationGeneral:
		return NotificationType(s), nil
	}
	return "", fmt.Errorf("invalid notification type %q", s)
}

// RelatedEntity points a notification at the case, document or hearing that
// produced it
type RelatedEntity struct {
	Type string `json:"type" bson:"type"`
	ID   string `json:"id" bson:"id"`
}

// Notification holds the structure for the notifications collection in mongo
type Notification struct {
	ID      primitive.ObjectID  `json:"_id" bson:"_id"`
	Details NotificationDetails `json:"notification" bson:"notification"`
	Version int32               `json:"__v" bson:"__v"`
}

// NotificationDetails holds the inner notification structure. Read is the
// only mutable field; records are never deleted.
type NotificationDetails struct {
	UserID        string             `json:"userId" bson:"userId"`
	Type          NotificationType   `json:"type" bson:"type"`
	Title         string             `json:"title" bson:"title"`
	Message       string             `json:"message" bson:"message"`
	RelatedEntity *RelatedEntity     `json:"relatedEntity,omitempty" bson:"relatedEntity,omitempty"`
	Read          bool               `json:"read" bson:"read"`
	CreatedAt     primitive.DateTime `json:"createdAt" bson:"createdAt"`
}
