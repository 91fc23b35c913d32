// Package scheduler runs the periodic background jobs: daily hearing
// reminders for every live case with a hearing inside the next 24 hours.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/adhivakta/adhivakta-api/databases"
	"github.com/adhivakta/adhivakta-api/models"
	"github.com/adhivakta/adhivakta-api/notify"
)

const jobTimeout = 5 * time.Minute

// Scheduler handles periodic background jobs for the practice
type Scheduler struct {
	cron       *cron.Cron
	CDB        databases.CaseDatabase
	Dispatcher notify.Dispatcher
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cdb databases.CaseDatabase, dispatcher notify.Dispatcher) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		CDB:        cdb,
		Dispatcher: dispatcher,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Send hearing reminders daily at 6 AM UTC
	_, err := s.cron.AddFunc("0 6 * * *", s.sendHearingReminders)
	if err != nil {
		zap.S().Errorw("failed to register hearing reminder job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Hearing reminder scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Hearing reminder scheduler stopped")
}

// sendHearingReminders notifies the party and counsel of every live case
// with a hearing in the next 24 hours
func (s *Scheduler) sendHearingReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	now := time.Now().UTC()
	horizon := now.Add(24 * time.Hour)

	nonTerminal := make([]string, 0, 4)
	for _, st := range models.NonTerminalStatuses() {
		nonTerminal = append(nonTerminal, string(st))
	}
	filter := bson.M{
		"case.status": bson.M{"$in": nonTerminal},
		"case.hearings": bson.M{"$elemMatch": bson.M{"date": bson.M{
			"$gt":  primitive.NewDateTimeFromTime(now),
			"$lte": primitive.NewDateTimeFromTime(horizon),
		}}},
	}

	cases, err := s.CDB.Find(ctx, filter)
	if err != nil {
		zap.S().Errorw("failed to load cases for hearing reminders", "error", err)
		return
	}

	var sent int
	for i := range cases {
		kase := cases[i]
		for _, h := range kase.Details.Hearings {
			t := h.Date.Time()
			if !t.After(now) || t.After(horizon) {
				continue
			}
			recipients := append([]string{kase.Details.Party}, kase.Details.Lawyers...)
			err := s.Dispatcher.Emit(ctx, recipients, models.NotificationDetails{
				Type:          models.NotificationHearingReminder,
				Title:         fmt.Sprintf("Hearing tomorrow on case %s", kase.Details.CaseNumber),
				Message:       fmt.Sprintf("Hearing (%s) at %s on %s", h.Purpose, kase.Details.Court.Name, t.Format("02 Jan 2006 15:04")),
				RelatedEntity: &models.RelatedEntity{Type: "case", ID: kase.ID.Hex()},
			})
			if err != nil {
				zap.S().Errorw("failed to emit hearing reminder", "caseId", kase.ID.Hex(), "error", err)
				continue
			}
			sent++
		}
	}
	zap.S().Infow("hearing reminder job finished", "cases", len(cases), "reminders", sent)
}
