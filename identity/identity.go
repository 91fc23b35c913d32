// Package identity verifies identity-provider tokens and resolves them to
// local user records.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/adhivakta/adhivakta-api/databases"
	"github.com/adhivakta/adhivakta-api/models"
)

// Identity is the verified subject extracted from a provider token
type Identity struct {
	ExternalID  string
	Email       string
	DisplayName string
}

// Verifier checks a raw identity token and returns the subject it asserts
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// JWTVerifier validates HS256 identity tokens issued by the auth frontend
type JWTVerifier struct {
	Secret []byte
}

// Verify parses and validates the token signature and expiry, then pulls the
// subject, email and display name claims.
func (v JWTVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.Secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("invalid identity token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid identity token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("identity token missing sub claim")
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return &Identity{ExternalID: sub, Email: email, DisplayName: name}, nil
}

// Resolver maps verified identities to local user records, creating a client
// account on first sight so that social sign-in needs no separate signup step.
type Resolver struct {
	UDB databases.UserDatabase
}

// Resolve finds the user for an identity by external id, falling back to
// email for accounts created through plain signup, and finally provisioning a
// new client record.
func (r Resolver) Resolve(ctx context.Context, ident *Identity) (*models.User, error) {
	users, err := r.UDB.Find(ctx, bson.M{"user.externalId": ident.ExternalID})
	if err != nil {
		return nil, models.NewUnavailable("failed to look up user", err)
	}
	if len(users) > 0 {
		return &users[0], nil
	}

	if ident.Email != "" {
		users, err = r.UDB.Find(ctx, bson.M{"user.email": ident.Email})
		if err != nil {
			return nil, models.NewUnavailable("failed to look up user", err)
		}
		if len(users) > 0 {
			user := users[0]
			_, err = r.UDB.UpdateOne(ctx,
				bson.M{"_id": user.ID},
				bson.M{"$set": bson.M{"user.externalId": ident.ExternalID}},
			)
			if err != nil {
				zap.S().Errorw("failed to link external identity",
					"userId", user.ID.Hex(), "error", err)
			}
			user.Details.ExternalID = ident.ExternalID
			return &user, nil
		}
	}

	name := ident.DisplayName
	if name == "" {
		name = emailLocalPart(ident.Email)
	}
	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	user := models.User{
		ID: primitive.NewObjectID(),
		Details: models.UserDetails{
			ExternalID: ident.ExternalID,
			Email:      ident.Email,
			Name:       name,
			Role:       models.RoleClient,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		Version: 0,
	}
	_, err = r.UDB.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.NewConflict("an account with this email already exists", err)
		}
		return nil, models.NewUnavailable("failed to create user", err)
	}
	zap.S().Infow("provisioned user from identity provider",
		"userId", user.ID.Hex(), "externalId", ident.ExternalID)
	return &user, nil
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
