package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/adhivakta/adhivakta-api/access"
	"github.com/adhivakta/adhivakta-api/api"
	"github.com/adhivakta/adhivakta-api/casenumber"
	"github.com/adhivakta/adhivakta-api/config"
	"github.com/adhivakta/adhivakta-api/databases"
	"github.com/adhivakta/adhivakta-api/docaccess"
	"github.com/adhivakta/adhivakta-api/lifecycle"
	"github.com/adhivakta/adhivakta-api/models"
	"github.com/adhivakta/adhivakta-api/notify"
)

// maxUpdateRetries bounds the optimistic concurrency loop on case updates
const maxUpdateRetries = 3

// Case exported for testing purposes
type Case struct {
	DB        databases.CaseDatabase
	UDB       databases.UserDatabase
	Access    access.Evaluator
	Lifecycle lifecycle.Manager
	Numbers   casenumber.Generator
	ACL       docaccess.Manager
	Notify    notify.Dispatcher
}

// caller resolves the authenticated principal or writes a 401
func caller(w http.ResponseWriter, r *http.Request) (access.Caller, bool) {
	c, ok := api.CallerFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "unauthorized"}`))
		return access.Caller{}, false
	}
	return access.Caller{ID: c.ID, Role: c.Role}, true
}

// CreateCaseHandler opens a new case. Clients open cases for themselves;
// admins may open on behalf of any client. The case number is allocated
// atomically and survives insert retries on duplicates.
func (cc Case) CreateCaseHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	if who.Role != models.RoleClient && who.Role != models.RoleAdmin {
		config.AppErrorStatus(w, models.NewForbidden("only clients or admins can open cases"))
		return
	}

	var kase models.Case
	if err := json.NewDecoder(r.Body).Decode(&kase.Details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if who.Role != models.RoleAdmin {
		kase.Details.Party = who.ID
	}
	if err := cc.Lifecycle.ValidateNew(&kase.Details); err != nil {
		config.AppErrorStatus(w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := cc.validateParticipants(ctx, w, kase.Details); err != nil {
		return
	}

	kase.ID = primitive.NewObjectID()
	kase.Version = 0

	number, err := cc.Numbers.Assign(ctx, func(caseNumber string) error {
		kase.Details.CaseNumber = caseNumber
		_, err := cc.DB.InsertOne(ctx, kase)
		return err
	})
	if err != nil {
		config.AppErrorStatus(w, err)
		return
	}
	kase.Details.CaseNumber = number

	cc.notifyParticipants(ctx, &kase, who.ID, models.NotificationCaseUpdate,
		"New case opened",
		fmt.Sprintf("Case %s (%s) has been opened", kase.Details.CaseNumber, kase.Details.Title))

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(kase)
}

// validateParticipants checks that the party is a client and every assigned
// lawyer id points at counsel. Writes the error response itself.
func (cc Case) validateParticipants(ctx context.Context, w http.ResponseWriter, details models.CaseDetails) error {
	if err := cc.checkParty(ctx, details.Party); err != nil {
		config.AppErrorStatus(w, err)
		return err
	}
	if err := cc.checkLawyers(ctx, details.Lawyers); err != nil {
		config.AppErrorStatus(w, err)
		return err
	}
	return nil
}

// checkParty verifies the party id resolves to a client account
func (cc Case) checkParty(ctx context.Context, partyID string) error {
	partyOID, err := primitive.ObjectIDFromHex(partyID)
	if err != nil {
		return models.NewValidationError("invalid party id")
	}
	party, err := cc.UDB.FindOne(ctx, bson.M{"_id": partyOID})
	if err != nil {
		return models.NewValidationError("party does not exist")
	}
	if party.Details.Role != models.RoleClient {
		return models.NewValidationError("party must be a client")
	}
	return nil
}

// checkLawyers verifies every id resolves to a lawyer or associate, naming
// the offending ids in the error
func (cc Case) checkLawyers(ctx context.Context, lawyerIDs []string) error {
	if len(lawyerIDs) == 0 {
		return nil
	}
	oids := make([]primitive.ObjectID, 0, len(lawyerIDs))
	for _, id := range lawyerIDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return models.NewValidationError(fmt.Sprintf("invalid lawyer id %q", id))
		}
		oids = append(oids, oid)
	}
	lawyers, err := cc.UDB.Find(ctx, bson.M{
		"_id":       bson.M{"$in": oids},
		"user.role": bson.M{"$in": []string{string(models.RoleLawyer), string(models.RoleAssociate)}},
	})
	if err != nil {
		return models.NewUnavailable("failed to verify lawyers", err)
	}
	if len(lawyers) == len(lawyerIDs) {
		return nil
	}
	found := make(map[string]struct{}, len(lawyers))
	for _, l := range lawyers {
		found[l.ID.Hex()] = struct{}{}
	}
	var missing []string
	for _, id := range lawyerIDs {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return models.NewValidationError(fmt.Sprintf("ids do not resolve to counsel: %v", missing))
}

// CasesHandler returns the caller's cases, paginated. Admins may scope by
// petitionerId/lawyerId; everyone else is pinned to their own cases.
func (cc Case) CasesHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	caseType := r.URL.Query().Get("caseType")
	priority := r.URL.Query().Get("priority")
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || Limit <= 0 {
		Limit = 10
	}
	limit64 := int64(Limit)
	Page := getPage(0, r)
	skip64 := int64(Page * Limit)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	scope := cc.Access.ListFilter(who, r.URL.Query().Get("petitionerId"), r.URL.Query().Get("lawyerId"))
	filter := bson.M{}
	if scope.PartyID != "" {
		filter["case.party"] = scope.PartyID
	}
	if scope.LawyerID != "" {
		filter["case.lawyers"] = scope.LawyerID
	}
	if status != "" {
		filter["case.status"] = status
	}
	if caseType != "" {
		filter["case.caseType"] = caseType
	}
	if priority != "" {
		filter["case.priority"] = priority
	}
	if len(search) > 2 {
		escaped := regexQuoteMeta(search)
		filter["$or"] = []bson.M{
			{"case.caseNumber": bson.M{"$regex": escaped, "$options": "i"}},
			{"case.title": bson.M{"$regex": escaped, "$options": "i"}},
			{"case.description": bson.M{"$regex": escaped, "$options": "i"}},
		}
	}

	type findResult struct {
		cases []models.Case
		err   error
	}
	type countResult struct {
		count int64
		err   error
	}

	findChan := make(chan findResult, 1)
	countChan := make(chan countResult, 1)

	go func() {
		cases, err := cc.DB.Find(ctx, filter, &options.FindOptions{
			Limit: &limit64,
			Skip:  &skip64,
			Sort:  bson.M{"_id": -1},
		})
		findChan <- findResult{cases: cases, err: err}
	}()

	go func() {
		count, err := cc.DB.CountDocuments(ctx, filter)
		countChan <- countResult{count: count, err: err}
	}()

	findRes := <-findChan
	countRes := <-countChan

	if findRes.err != nil {
		config.ErrorStatus("failed to get cases", http.StatusNotFound, w, findRes.err)
		return
	}

	dbResp := findRes.cases
	var totalCount int64
	if countRes.err != nil {
		totalCount = int64(len(dbResp))
	} else {
		totalCount = countRes.count
	}

	if len(dbResp) == 0 {
		dbResp = []models.Case{}
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(Limit)))

	response := map[string]interface{}{
		"data":       dbResp,
		"page":       Page,
		"limit":      Limit,
		"totalCount": totalCount,
		"totalPages": totalPages,
	}

	b, err := json.Marshal(response)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// loadAuthorizedCase fetches the case and enforces read access, writing the
// error response on failure. Not-found is resolved before authorization so a
// missing case never leaks as a 403.
func (cc Case) loadAuthorizedCase(w http.ResponseWriter, r *http.Request, who access.Caller) *models.Case {
	caseID := mux.Vars(r)["case_id"]
	bID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("invalid case ID", http.StatusBadRequest, w, err)
		return nil
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	kase, err := cc.DB.FindOne(ctx, bson.M{"_id": bID})
	if err != nil {
		config.ErrorStatus("failed to find case", http.StatusNotFound, w, err)
		return nil
	}
	if !cc.Access.CanRead(who, kase) {
		config.AppErrorStatus(w, models.NewForbidden("you do not have access to this case"))
		return nil
	}
	return kase
}

// CaseByIDHandler returns one case with its derived next hearing
func (cc Case) CaseByIDHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	kase := cc.loadAuthorizedCase(w, r, who)
	if kase == nil {
		return
	}

	response := map[string]interface{}{
		"_id":         kase.ID,
		"case":        kase.Details,
		"__v":         kase.Version,
		"nextHearing": cc.Lifecycle.NextHearing(kase.Details),
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// UpdateCaseHandler applies a partial update under the lifecycle rules.
// Writes race through a version check: the update only lands if the record
// still has the version we read, otherwise we re-read and retry.
func (cc Case) UpdateCaseHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var patch models.CasePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	caseID := mux.Vars(r)["case_id"]
	bID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("invalid case ID", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		kase, err := cc.DB.FindOne(ctx, bson.M{"_id": bID})
		if err != nil {
			config.ErrorStatus("failed to find case", http.StatusNotFound, w, err)
			return
		}

		level := cc.Access.WriteAccess(who, kase)
		if level == access.WriteNone {
			config.AppErrorStatus(w, models.NewForbidden("you do not have write access to this case"))
			return
		}
		authorized := cc.Access.AuthorizedPatch(level, patch)

		merged, err := cc.Lifecycle.Merge(kase.Details, authorized)
		if err != nil {
			config.AppErrorStatus(w, err)
			return
		}
		if err := cc.Lifecycle.Validate(kase.Details, merged); err != nil {
			config.AppErrorStatus(w, err)
			return
		}
		if authorized.Party != nil {
			if err := cc.checkParty(ctx, merged.Party); err != nil {
				config.AppErrorStatus(w, err)
				return
			}
		}
		if authorized.Lawyers != nil {
			if err := cc.checkLawyers(ctx, merged.Lawyers); err != nil {
				config.AppErrorStatus(w, err)
				return
			}
		}
		cc.Lifecycle.Touch(kase.Details, &merged)

		res, err := cc.DB.UpdateOne(ctx,
			bson.M{"_id": bID, "__v": kase.Version},
			bson.M{"$set": bson.M{"case": merged}, "$inc": bson.M{"__v": 1}},
		)
		if err != nil {
			config.ErrorStatus("failed to update case", http.StatusInternalServerError, w, err)
			return
		}
		if res.MatchedCount == 0 {
			// lost the race, re-read and try again
			zap.S().Debugw("case update version conflict, retrying", "caseId", caseID, "attempt", attempt)
			continue
		}

		updated := *kase
		updated.Details = merged
		updated.Version = kase.Version + 1

		membersChanged := authorized.Party != nil || authorized.Lawyers != nil
		if membersChanged {
			if err := cc.ACL.Sync(ctx, &updated); err != nil {
				zap.S().Errorw("document access resync failed", "caseId", caseID, "error", err)
			}
		}

		cc.notifyParticipants(ctx, &updated, who.ID, models.NotificationCaseUpdate,
			fmt.Sprintf("Case %s updated", updated.Details.CaseNumber),
			fmt.Sprintf("Case %s (%s) has been updated", updated.Details.CaseNumber, updated.Details.Title))

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(updated)
		return
	}
	config.AppErrorStatus(w, models.NewConflict("case was modified concurrently, please retry", nil))
}

// AddHearingHandler appends a hearing to the case schedule
func (cc Case) AddHearingHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var hearing models.Hearing
	if err := json.NewDecoder(r.Body).Decode(&hearing); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	kase := cc.loadAuthorizedCase(w, r, who)
	if kase == nil {
		return
	}
	if !cc.Access.CanManageHearings(who, kase) {
		config.AppErrorStatus(w, models.NewForbidden("only assigned counsel can manage hearings"))
		return
	}
	if kase.Details.Status.Terminal() {
		config.AppErrorStatus(w, models.NewValidationError(fmt.Sprintf("case is %s and cannot take new hearings", kase.Details.Status)))
		return
	}
	if err := cc.Lifecycle.ValidateHearing(hearing); err != nil {
		config.AppErrorStatus(w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	_, err := cc.DB.UpdateOne(ctx,
		bson.M{"_id": kase.ID},
		bson.M{
			"$push": bson.M{"case.hearings": hearing},
			"$set":  bson.M{"case.updatedAt": now},
			"$inc":  bson.M{"__v": 1},
		},
	)
	if err != nil {
		config.ErrorStatus("failed to add hearing", http.StatusInternalServerError, w, err)
		return
	}

	cc.notifyParticipants(ctx, kase, who.ID, models.NotificationHearingReminder,
		fmt.Sprintf("Hearing scheduled on case %s", kase.Details.CaseNumber),
		fmt.Sprintf("A hearing (%s) was scheduled for %s", hearing.Purpose, hearing.Date.Time().Format("02 Jan 2006")))

	updated := *kase
	updated.Details.Hearings = append(append([]models.Hearing{}, kase.Details.Hearings...), hearing)
	updated.Details.UpdatedAt = now
	updated.Version = kase.Version + 1

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(updated)
}

// CaseTimelineHandler returns the derived case history, most recent first
func (cc Case) CaseTimelineHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	kase := cc.loadAuthorizedCase(w, r, who)
	if kase == nil {
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"caseId":   kase.ID.Hex(),
		"timeline": cc.Lifecycle.Timeline(kase.Details),
	})
}

// CaseStatsHandler returns per-status counts for the caller's cases
func (cc Case) CaseStatsHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	scope := cc.Access.ListFilter(who, "", "")
	base := bson.M{}
	if scope.PartyID != "" {
		base["case.party"] = scope.PartyID
	}
	if scope.LawyerID != "" {
		base["case.lawyers"] = scope.LawyerID
	}

	statuses := []models.CaseStatus{
		models.StatusOpen, models.StatusActive, models.StatusPending,
		models.StatusClosed, models.StatusDismissed, models.StatusAppealed,
	}
	counts := make(map[string]int64, len(statuses)+1)
	var total int64
	for _, s := range statuses {
		filter := bson.M{"case.status": string(s)}
		for k, v := range base {
			filter[k] = v
		}
		count, err := cc.DB.CountDocuments(ctx, filter)
		if err != nil {
			config.ErrorStatus("failed to count cases", http.StatusInternalServerError, w, err)
			return
		}
		counts[string(s)] = count
		total += count
	}
	counts["total"] = total

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(counts)
}

// upcomingHearing pairs a hearing with the case it belongs to
type upcomingHearing struct {
	CaseID     string            `json:"caseId"`
	CaseNumber string            `json:"caseNumber"`
	Title      string            `json:"title"`
	Hearing    models.Hearing    `json:"hearing"`
	Court      models.Court      `json:"court"`
	Status     models.CaseStatus `json:"status"`
}

// UpcomingHearingsHandler lists future hearings across the caller's live
// cases, soonest first
func (cc Case) UpcomingHearingsHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		days = 30
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	scope := cc.Access.ListFilter(who, "", "")
	nonTerminal := make([]string, 0, 4)
	for _, s := range models.NonTerminalStatuses() {
		nonTerminal = append(nonTerminal, string(s))
	}
	filter := bson.M{"case.status": bson.M{"$in": nonTerminal}}
	if scope.PartyID != "" {
		filter["case.party"] = scope.PartyID
	}
	if scope.LawyerID != "" {
		filter["case.lawyers"] = scope.LawyerID
	}

	now := time.Now().UTC()
	horizon := now.AddDate(0, 0, days)
	filter["case.hearings"] = bson.M{"$elemMatch": bson.M{"date": bson.M{
		"$gt":  primitive.NewDateTimeFromTime(now),
		"$lte": primitive.NewDateTimeFromTime(horizon),
	}}}

	cases, err := cc.DB.Find(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to get cases", http.StatusInternalServerError, w, err)
		return
	}

	upcoming := []upcomingHearing{}
	for _, kase := range cases {
		for _, h := range kase.Details.Hearings {
			t := h.Date.Time()
			if t.After(now) && !t.After(horizon) {
				upcoming = append(upcoming, upcomingHearing{
					CaseID:     kase.ID.Hex(),
					CaseNumber: kase.Details.CaseNumber,
					Title:      kase.Details.Title,
					Hearing:    h,
					Court:      kase.Details.Court,
					Status:     kase.Details.Status,
				})
			}
		}
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].Hearing.Date < upcoming[j].Hearing.Date
	})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"data": upcoming})
}

// notifyParticipants emits a case notification to everyone on the case
// except the actor who triggered it
func (cc Case) notifyParticipants(ctx context.Context, kase *models.Case, actorID string, nType models.NotificationType, title, message string) {
	recipients := make([]string, 0, len(kase.Details.Lawyers)+1)
	if kase.Details.Party != actorID {
		recipients = append(recipients, kase.Details.Party)
	}
	for _, l := range kase.Details.Lawyers {
		if l != actorID {
			recipients = append(recipients, l)
		}
	}
	if len(recipients) == 0 {
		return
	}
	err := cc.Notify.Emit(ctx, recipients, models.NotificationDetails{
		Type:          nType,
		Title:         title,
		Message:       message,
		RelatedEntity: &models.RelatedEntity{Type: "case", ID: kase.ID.Hex()},
	})
	if err != nil {
		zap.S().Errorw("failed to emit case notification", "caseId", kase.ID.Hex(), "error", err)
	}
}

func getPage(Page int, r *http.Request) int {
	if r.URL.Query().Get("page") == "" {
		zap.S().Warnf("page not set, using default of %v", Page)
	} else {
		var err error
		Page, err = strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			zap.S().Errorf(fmt.Sprintf("error parsing page number: %v", err))
		}
		if Page < 0 {
			zap.S().Warnf(fmt.Sprintf("cannot process page number less than 1. Got: %v", Page))
			return 0
		}
	}
	return Page
}
