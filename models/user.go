package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User holds the structure for the user collection in mongo
type User struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details UserDetails        `json:"user" bson:"user"`
	Version int32              `json:"__v" bson:"__v"`
}

// UserDetails holds the structure for the inner user structure as defined in
// the user collection in mongo. ExternalID is the identity-provider subject
// and is unique alongside Email.
type UserDetails struct {
	ExternalID     string             `json:"externalId" bson:"externalId"`
	Email          string             `json:"email" bson:"email"`
	Name           string             `json:"name" bson:"name"`
	Role           Role               `json:"role" bson:"role"`
	Phone          string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Address        string             `json:"address,omitempty" bson:"address,omitempty"`
	Specialization string             `json:"specialization,omitempty" bson:"specialization,omitempty"`
	PasswordHash   string             `json:"-" bson:"passwordHash,omitempty"`
	CreatedAt      primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt      primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// UserSummary is the trimmed user shape embedded in API responses
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Summary converts a full user record to its response shape
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:    u.ID.Hex(),
		Name:  u.Details.Name,
		Email: u.Details.Email,
		Role:  u.Details.Role,
	}
}
