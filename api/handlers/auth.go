package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/adhivakta/adhivakta-api/api"
	"github.com/adhivakta/adhivakta-api/config"
	"github.com/adhivakta/adhivakta-api/databases"
	"github.com/adhivakta/adhivakta-api/identity"
	"github.com/adhivakta/adhivakta-api/models"
)

// Auth handler struct for authentication endpoints
type Auth struct {
	UDB      databases.UserDatabase
	Verifier identity.Verifier
	Resolver identity.Resolver
}

type signupRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	Specialization string `json:"specialization"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type socialLoginRequest struct {
	IDToken string `json:"idToken"`
}

type sessionResponse struct {
	Token string             `json:"token"`
	User  models.UserSummary `json:"user"`
}

// SignupHandler registers a new account with a self-selected non-admin role
func (a Auth) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		config.AppErrorStatus(w, models.NewValidationError("email and password are required"))
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		config.AppErrorStatus(w, models.NewValidationError(err.Error()))
		return
	}
	allowed := false
	for _, sr := range models.SignupRoles() {
		if role == sr {
			allowed = true
		}
	}
	if !allowed {
		config.AppErrorStatus(w, models.NewValidationError("role cannot be self-assigned"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := a.UDB.Find(ctx, bson.M{"user.email": req.Email})
	if err != nil {
		config.ErrorStatus("failed to check existing users", http.StatusInternalServerError, w, err)
		return
	}
	if len(existing) > 0 {
		config.AppErrorStatus(w, models.NewConflict("an account with this email already exists", nil))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	user := models.User{
		ID: primitive.NewObjectID(),
		Details: models.UserDetails{
			Email:          req.Email,
			Name:           req.Name,
			Role:           role,
			Phone:          req.Phone,
			Address:        req.Address,
			Specialization: req.Specialization,
			PasswordHash:   string(hash),
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
	if user.Details.Name == "" {
		user.Details.Name = req.Email
		if i := strings.Index(req.Email, "@"); i > 0 {
			user.Details.Name = req.Email[:i]
		}
	}
	_, err = a.UDB.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			config.AppErrorStatus(w, models.NewConflict("an account with this email already exists", err))
			return
		}
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	token := api.IssueSession(r, &user)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sessionResponse{Token: token, User: user.Summary()})
}

// LoginHandler exchanges email/password credentials for a bearer token. An
// unknown email reports requiresSignup so the frontend can route to signup.
func (a Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	users, err := a.UDB.Find(ctx, bson.M{"user.email": req.Email})
	if err != nil {
		config.ErrorStatus("failed to look up user", http.StatusInternalServerError, w, err)
		return
	}
	if len(users) == 0 {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "no account for this email", "requiresSignup": true}`))
		return
	}
	user := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(user.Details.PasswordHash), []byte(req.Password)); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid credentials"}`))
		return
	}

	token := api.IssueSession(r, &user)
	json.NewEncoder(w).Encode(sessionResponse{Token: token, User: user.Summary()})
}

// SocialLoginHandler exchanges a verified identity-provider token for a
// session, provisioning a client account on first sight
func (a Auth) SocialLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req socialLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.IDToken == "" {
		config.AppErrorStatus(w, models.NewValidationError("idToken is required"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	ident, err := a.Verifier.Verify(ctx, req.IDToken)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid identity token"}`))
		return
	}
	user, err := a.Resolver.Resolve(ctx, ident)
	if err != nil {
		config.AppErrorStatus(w, err)
		return
	}

	token := api.IssueSession(r, user)
	json.NewEncoder(w).Encode(sessionResponse{Token: token, User: user.Summary()})
}

// AdminLoginHandler authenticates an admin account. Only users already
// holding the admin role can sign in here.
func (a Auth) AdminLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	users, err := a.UDB.Find(ctx, bson.M{"user.email": req.Email, "user.role": string(models.RoleAdmin)})
	if err != nil {
		config.ErrorStatus("failed to look up user", http.StatusInternalServerError, w, err)
		return
	}
	if len(users) == 0 {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid credentials"}`))
		return
	}
	user := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(user.Details.PasswordHash), []byte(req.Password)); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid credentials"}`))
		return
	}

	token := api.IssueSession(r, &user)
	json.NewEncoder(w).Encode(sessionResponse{Token: token, User: user.Summary()})
}

// ProfileHandler returns the full record for the authenticated user
func (a Auth) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := api.CallerFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "unauthorized"}`))
		return
	}
	oid, err := primitive.ObjectIDFromHex(caller.ID)
	if err != nil {
		config.ErrorStatus("invalid user ID", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.UDB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		config.ErrorStatus("failed to find user", http.StatusNotFound, w, err)
		return
	}
	json.NewEncoder(w).Encode(user)
}
