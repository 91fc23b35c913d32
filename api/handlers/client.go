package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adhivakta/adhivakta-api/access"
	"github.com/adhivakta/adhivakta-api/api"
	"github.com/adhivakta/adhivakta-api/config"
	"github.com/adhivakta/adhivakta-api/databases"
	"github.com/adhivakta/adhivakta-api/models"
)

// Client exported for testing purposes
type Client struct {
	UDB    databases.UserDatabase
	CDB    databases.CaseDatabase
	Access access.Evaluator
}

type clientRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// counselRole reports whether the role belongs to practice staff
func counselRole(role models.Role) bool {
	return role == models.RoleLawyer || role == models.RoleAssociate || role == models.RoleAdmin
}

// CreateClientHandler registers a client record on behalf of the practice.
// Accounts created here have no password; the client claims the account
// through social sign-in against the same email.
func (c Client) CreateClientHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	if !counselRole(who.Role) {
		config.AppErrorStatus(w, models.NewForbidden("only practice staff can register clients"))
		return
	}

	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Name == "" {
		config.AppErrorStatus(w, models.NewValidationError("email and name are required"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := c.UDB.Find(ctx, bson.M{"user.email": req.Email})
	if err != nil {
		config.ErrorStatus("failed to check existing users", http.StatusInternalServerError, w, err)
		return
	}
	if len(existing) > 0 {
		config.AppErrorStatus(w, models.NewConflict("an account with this email already exists", nil))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	user := models.User{
		ID: primitive.NewObjectID(),
		Details: models.UserDetails{
			Email:     req.Email,
			Name:      req.Name,
			Role:      models.RoleClient,
			Phone:     req.Phone,
			Address:   req.Address,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	_, err = c.UDB.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			config.AppErrorStatus(w, models.NewConflict("an account with this email already exists", err))
			return
		}
		config.ErrorStatus("failed to create client", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// ClientByIDHandler returns a client record. Clients can only fetch
// themselves; practice staff can fetch anyone.
func (c Client) ClientByIDHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	clientID := mux.Vars(r)["client_id"]
	bID, err := primitive.ObjectIDFromHex(clientID)
	if err != nil {
		config.ErrorStatus("invalid client ID", http.StatusBadRequest, w, err)
		return
	}
	if !counselRole(who.Role) && who.ID != clientID {
		config.AppErrorStatus(w, models.NewForbidden("you can only view your own profile"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := c.UDB.FindOne(ctx, bson.M{"_id": bID})
	if err != nil {
		config.ErrorStatus("failed to find client", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(user)
}

// UpdateClientHandler updates contact details on a client record. Role is
// immutable here: promoting an account is an admin operation, not an edit.
func (c Client) UpdateClientHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	clientID := mux.Vars(r)["client_id"]
	bID, err := primitive.ObjectIDFromHex(clientID)
	if err != nil {
		config.ErrorStatus("invalid client ID", http.StatusBadRequest, w, err)
		return
	}
	if !counselRole(who.Role) && who.ID != clientID {
		config.AppErrorStatus(w, models.NewForbidden("you can only update your own profile"))
		return
	}

	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	set := bson.M{"user.updatedAt": primitive.NewDateTimeFromTime(time.Now().UTC())}
	if req.Name != "" {
		set["user.name"] = req.Name
	}
	if req.Phone != "" {
		set["user.phone"] = req.Phone
	}
	if req.Address != "" {
		set["user.address"] = req.Address
	}

	res, err := c.UDB.UpdateOne(ctx,
		bson.M{"_id": bID},
		bson.M{"$set": set, "$inc": bson.M{"__v": 1}},
	)
	if err != nil {
		config.ErrorStatus("failed to update client", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.AppErrorStatus(w, models.NewNotFound("client not found"))
		return
	}

	user, err := c.UDB.FindOne(ctx, bson.M{"_id": bID})
	if err != nil {
		config.ErrorStatus("failed to find client", http.StatusNotFound, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(user)
}

// ClientCasesHandler returns the cases where the client is the party
func (c Client) ClientCasesHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	clientID := mux.Vars(r)["client_id"]
	if _, err := primitive.ObjectIDFromHex(clientID); err != nil {
		config.ErrorStatus("invalid client ID", http.StatusBadRequest, w, err)
		return
	}
	if !counselRole(who.Role) && who.ID != clientID {
		config.AppErrorStatus(w, models.NewForbidden("you can only view your own cases"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cases, err := c.CDB.Find(ctx, bson.M{"case.party": clientID}, &options.FindOptions{
		Sort: bson.M{"_id": -1},
	})
	if err != nil {
		config.ErrorStatus("failed to get cases", http.StatusInternalServerError, w, err)
		return
	}
	if cases == nil {
		cases = []models.Case{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"data": cases})
}

// SearchClientsHandler finds clients by name or email prefix for assignment
// pickers. Needs at least two characters and caps results at ten.
func (c Client) SearchClientsHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	if !counselRole(who.Role) {
		config.AppErrorStatus(w, models.NewForbidden("only practice staff can search clients"))
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		config.AppErrorStatus(w, models.NewValidationError("query must be at least 2 characters"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	limit := int64(10)
	escaped := regexQuoteMeta(query)
	users, err := c.UDB.Find(ctx, bson.M{
		"user.role": string(models.RoleClient),
		"$or": []bson.M{
			{"user.name": bson.M{"$regex": escaped, "$options": "i"}},
			{"user.email": bson.M{"$regex": escaped, "$options": "i"}},
		},
	}, &options.FindOptions{Limit: &limit})
	if err != nil {
		config.ErrorStatus("failed to search clients", http.StatusInternalServerError, w, err)
		return
	}

	summaries := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.Summary())
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"data": summaries})
}

// regexQuoteMeta escapes regex metacharacters so user input matches literally
func regexQuoteMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
