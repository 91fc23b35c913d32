package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/adhivakta/adhivakta-api/access"
	"github.com/adhivakta/adhivakta-api/api"
	"github.com/adhivakta/adhivakta-api/config"
	"github.com/adhivakta/adhivakta-api/databases"
	"github.com/adhivakta/adhivakta-api/models"
)

// Calendar exported for testing purposes
type Calendar struct {
	DB     databases.CaseDatabase
	Access access.Evaluator
}

// CalendarHandler returns all hearings in a date window across the caller's
// cases. Defaults to the current month when start/end are absent.
func (c Calendar) CalendarHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			config.AppErrorStatus(w, models.NewValidationError("invalid start date"))
			return
		}
		start = t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			config.AppErrorStatus(w, models.NewValidationError("invalid end date"))
			return
		}
		end = t.AddDate(0, 0, 1) // end date is inclusive
	}
	if end.Before(start) {
		config.AppErrorStatus(w, models.NewValidationError("end date precedes start date"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	scope := c.Access.ListFilter(who, "", "")
	filter := bson.M{"case.hearings": bson.M{"$elemMatch": bson.M{"date": bson.M{
		"$gte": primitive.NewDateTimeFromTime(start),
		"$lt":  primitive.NewDateTimeFromTime(end),
	}}}}
	if scope.PartyID != "" {
		filter["case.party"] = scope.PartyID
	}
	if scope.LawyerID != "" {
		filter["case.lawyers"] = scope.LawyerID
	}

	cases, err := c.DB.Find(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to get cases", http.StatusInternalServerError, w, err)
		return
	}

	entries := []upcomingHearing{}
	for _, kase := range cases {
		for _, h := range kase.Details.Hearings {
			t := h.Date.Time()
			if !t.Before(start) && t.Before(end) {
				entries = append(entries, upcomingHearing{
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
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Hearing.Date < entries[j].Hearing.Date
	})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"start": start.Format("2006-01-02"),
		"end":   end.AddDate(0, 0, -1).Format("2006-01-02"),
		"data":  entries,
	})
}
