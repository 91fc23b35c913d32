// Package casenumber assigns the human-facing case numbers. Numbers are
// allocated from a per-year atomic counter, so concurrent creations can never
// collide the way a count-then-insert scheme would.
package casenumber

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/adhivakta/adhivakta-api/databases"
	"github.com/adhivakta/adhivakta-api/models"
)

const maxAssignAttempts = 3

// Generator produces case numbers of the form <prefix>-<yy>-<seq>
type Generator struct {
	DB     databases.CounterDatabase
	Prefix string
}

// Next allocates the next case number for the current year. Each call burns a
// sequence value whether or not the caller ends up using it; gaps in the
// series are acceptable, duplicates are not.
func (g Generator) Next(ctx context.Context) (string, error) {
	yy := time.Now().UTC().Format("06")
	seq, err := g.DB.NextSequence(ctx, "case-"+yy)
	if err != nil {
		return "", models.NewUnavailable("case number allocation failed", err)
	}
	return fmt.Sprintf("%s-%s-%04d", g.Prefix, yy, seq), nil
}

// Assign allocates a number and runs the caller's insert with it, retrying
// with a fresh number when the insert fails on the unique caseNumber index.
// Any other insert error aborts immediately.
func (g Generator) Assign(ctx context.Context, insert func(caseNumber string) error) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAssignAttempts; attempt++ {
		number, err := g.Next(ctx)
		if err != nil {
			return "", err
		}
		err = insert(number)
		if err == nil {
			return number, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return "", err
		}
		lastErr = err
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return "", models.NewConflict("could not allocate a unique case number", lastErr)
}
