package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/adhivakta/adhivakta-api/databases/mocks"
	"github.com/adhivakta/adhivakta-api/identity"
	"github.com/adhivakta/adhivakta-api/models"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims jwt.MapClaims, secret []byte) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestVerifyValidToken(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"sub":   "ext-123",
		"email": "asha@example.com",
		"name":  "Asha Rao",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	v := identity.JWTVerifier{Secret: testSecret}
	ident, err := v.Verify(context.Background(), raw)

	assert.NoError(t, err)
	assert.Equal(t, "ext-123", ident.ExternalID)
	assert.Equal(t, "asha@example.com", ident.Email)
	assert.Equal(t, "Asha Rao", ident.DisplayName)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{"sub": "ext-123"}, []byte("wrong-secret"))

	v := identity.JWTVerifier{Secret: testSecret}
	_, err := v.Verify(context.Background(), raw)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"sub": "ext-123",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}, testSecret)

	v := identity.JWTVerifier{Secret: testSecret}
	_, err := v.Verify(context.Background(), raw)
	assert.Error(t, err)
}

func TestVerifyRequiresSubject(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{"email": "asha@example.com"}, testSecret)

	v := identity.JWTVerifier{Secret: testSecret}
	_, err := v.Verify(context.Background(), raw)
	assert.Error(t, err)
}

func TestResolveExistingByExternalID(t *testing.T) {
	udb := &mocks.UserDatabase{}
	existing := models.User{
		ID: primitive.NewObjectID(),
		Details: models.UserDetails{
			ExternalID: "ext-123",
			Email:      "asha@example.com",
			Role:       models.RoleClient,
		},
	}
	udb.On("Find", mock.Anything, bson.M{"user.externalId": "ext-123"}).Return([]models.User{existing}, nil)

	r := identity.Resolver{UDB: udb}
	user, err := r.Resolve(context.Background(), &identity.Identity{ExternalID: "ext-123"})

	assert.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	udb.AssertNotCalled(t, "InsertOne")
}

func TestResolveLinksByEmail(t *testing.T) {
	udb := &mocks.UserDatabase{}
	existing := models.User{
		ID: primitive.NewObjectID(),
		Details: models.UserDetails{
			Email: "asha@example.com",
			Role:  models.RoleLawyer,
		},
	}
	udb.On("Find", mock.Anything, bson.M{"user.externalId": "ext-123"}).Return([]models.User{}, nil)
	udb.On("Find", mock.Anything, bson.M{"user.email": "asha@example.com"}).Return([]models.User{existing}, nil)
	udb.On("UpdateOne", mock.Anything, bson.M{"_id": existing.ID}, mock.Anything).Return(nil, nil)

	r := identity.Resolver{UDB: udb}
	user, err := r.Resolve(context.Background(), &identity.Identity{ExternalID: "ext-123", Email: "asha@example.com"})

	assert.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, "ext-123", user.Details.ExternalID)
	udb.AssertNotCalled(t, "InsertOne")
}

func TestResolveProvisionsClientOnFirstSight(t *testing.T) {
	udb := &mocks.UserDatabase{}
	udb.On("Find", mock.Anything, mock.Anything).Return([]models.User{}, nil)
	udb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.User")).Return(nil, nil)

	r := identity.Resolver{UDB: udb}
	user, err := r.Resolve(context.Background(), &identity.Identity{
		ExternalID: "ext-999",
		Email:      "ravi@example.com",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.RoleClient, user.Details.Role)
	assert.Equal(t, "ravi", user.Details.Name, "name falls back to the email local part")
	udb.AssertCalled(t, "InsertOne", mock.Anything, mock.AnythingOfType("models.User"))
}
