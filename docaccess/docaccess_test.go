package docaccess_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/adhivakta/adhivakta-api/databases/mocks"
	"github.com/adhivakta/adhivakta-api/docaccess"
	"github.com/adhivakta/adhivakta-api/models"
)

func testCase(party string, lawyers ...string) *models.Case {
	return &models.Case{
		ID: primitive.NewObjectID(),
		Details: models.CaseDetails{
			Party:   party,
			Lawyers: lawyers,
		},
	}
}

func TestComputeOrderAndUniqueness(t *testing.T) {
	kase := testCase("client-1", "lawyer-1", "lawyer-2")

	access := docaccess.Compute(kase, "uploader-1")
	assert.Equal(t, []string{"client-1", "lawyer-1", "lawyer-2", "uploader-1"}, access)

	// uploader already on the case is not duplicated
	access = docaccess.Compute(kase, "lawyer-1")
	assert.Equal(t, []string{"client-1", "lawyer-1", "lawyer-2"}, access)

	access = docaccess.Compute(kase, "client-1")
	assert.Equal(t, []string{"client-1", "lawyer-1", "lawyer-2"}, access)
}

func TestSyncRewritesStaleLists(t *testing.T) {
	kase := testCase("client-1", "lawyer-2")
	staleDoc := models.Document{
		ID: primitive.NewObjectID(),
		Details: models.DocumentDetails{
			CaseID:     kase.ID.Hex(),
			UploadedBy: "lawyer-1",
			Access:     []string{"client-1", "lawyer-1"},
		},
	}
	freshDoc := models.Document{
		ID: primitive.NewObjectID(),
		Details: models.DocumentDetails{
			CaseID:     kase.ID.Hex(),
			UploadedBy: "client-1",
			Access:     []string{"client-1", "lawyer-2"},
		},
	}

	db := &mocks.DocumentDatabase{}
	db.On("Find", mock.Anything, bson.M{"document.caseId": kase.ID.Hex()}).
		Return([]models.Document{staleDoc, freshDoc}, nil)
	db.On("UpdateOne", mock.Anything,
		bson.M{"_id": staleDoc.ID},
		bson.M{"$set": bson.M{"document.access": []string{"client-1", "lawyer-2", "lawyer-1"}}},
	).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)

	m := docaccess.Manager{DB: db}
	err := m.Sync(context.Background(), kase)

	assert.NoError(t, err)
	db.AssertNumberOfCalls(t, "UpdateOne", 1)
}

func TestSyncNoWritesWhenCurrent(t *testing.T) {
	kase := testCase("client-1", "lawyer-1")
	doc := models.Document{
		ID: primitive.NewObjectID(),
		Details: models.DocumentDetails{
			CaseID:     kase.ID.Hex(),
			UploadedBy: "lawyer-1",
			Access:     []string{"client-1", "lawyer-1"},
		},
	}

	db := &mocks.DocumentDatabase{}
	db.On("Find", mock.Anything, mock.Anything).Return([]models.Document{doc}, nil)

	m := docaccess.Manager{DB: db}
	err := m.Sync(context.Background(), kase)

	assert.NoError(t, err)
	db.AssertNotCalled(t, "UpdateOne")
}
