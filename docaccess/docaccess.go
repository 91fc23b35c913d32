// Package docaccess owns document access lists. The list for any document is
// always {party, assigned lawyers, uploader}; this package is the only writer
// of the access field, so there is exactly one place where the rule lives.
package docaccess

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/adhivakta/adhivakta-api/databases"
	"github.com/adhivakta/adhivakta-api/models"
)

// Compute derives a document's access list from its case and uploader. Order
// is stable (party, lawyers in assignment order, uploader) and ids are unique.
func Compute(c *models.Case, uploaderID string) []string {
	access := make([]string, 0, len(c.Details.Lawyers)+2)
	seen := make(map[string]struct{})
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		access = append(access, id)
	}
	add(c.Details.Party)
	for _, l := range c.Details.Lawyers {
		add(l)
	}
	add(uploaderID)
	return access
}

// Manager resynchronizes stored access lists after case membership changes
type Manager struct {
	DB databases.DocumentDatabase
}

// Sync recomputes the access list of every document on a case. Runs after the
// case update commits; a reader in the window between commit and resync sees
// the previous lists. Per-document writes are needed because each uploader
// differs.
func (m Manager) Sync(ctx context.Context, c *models.Case) error {
	docs, err := m.DB.Find(ctx, bson.M{"document.caseId": c.ID.Hex()})
	if err != nil {
		return models.NewUnavailable("failed to load case documents", err)
	}
	for i := range docs {
		doc := docs[i]
		want := Compute(c, doc.Details.UploadedBy)
		if equal(doc.Details.Access, want) {
			continue
		}
		_, err := m.DB.UpdateOne(ctx,
			bson.M{"_id": doc.ID},
			bson.M{"$set": bson.M{"document.access": want}},
		)
		if err != nil {
			zap.S().Errorw("failed to resync document access",
				"documentId", doc.ID.Hex(), "caseId", c.ID.Hex(), "error", err)
			return models.NewUnavailable("failed to resync document access", err)
		}
	}
	return nil
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
