package handlers_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/adhivakta/adhivakta-api/api"
	"github.com/adhivakta/adhivakta-api/api/handlers"
	"github.com/adhivakta/adhivakta-api/databases/mocks"
	"github.com/adhivakta/adhivakta-api/models"
	"github.com/adhivakta/adhivakta-api/notify"
)

// fakeStorage stands in for the cloud store in handler tests
type fakeStorage struct {
	uploadURL string
	uploadErr error
	deleteErr error
	deleted   []string
}

func (f *fakeStorage) Upload(ctx context.Context, data []byte, folder, filename, contentType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadURL, nil
}

func (f *fakeStorage) Delete(ctx context.Context, fileURL string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, fileURL)
	return nil
}

func multipartUpload(t *testing.T, caseID string, withFile bool) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if withFile {
		part, err := writer.CreateFormFile("file", "petition.pdf")
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte("%PDF-1.4 fake"))
	}
	writer.WriteField("caseId", caseID)
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestUploadDocumentHandlerRequiresFile(t *testing.T) {
	d := handlers.Document{}
	body, contentType := multipartUpload(t, primitive.NewObjectID().Hex(), false)

	req, _ := http.NewRequest("POST", "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(api.WithCaller(req.Context(), api.Caller{ID: "client-1", Role: models.RoleClient}))
	rr := httptest.NewRecorder()

	http.HandlerFunc(d.UploadDocumentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUploadDocumentHandlerForbiddenForNonMembers(t *testing.T) {
	kase := testCase("client-1", []string{"lawyer-1"}, models.StatusOpen)
	cdb := &mocks.CaseDatabase{}
	cdb.On("FindOne", mock.Anything, bson.M{"_id": kase.ID}).Return(kase, nil)

	d := handlers.Document{CDB: cdb}
	body, contentType := multipartUpload(t, kase.ID.Hex(), true)

	req, _ := http.NewRequest("POST", "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(api.WithCaller(req.Context(), api.Caller{ID: "lawyer-9", Role: models.RoleLawyer}))
	rr := httptest.NewRecorder()

	http.HandlerFunc(d.UploadDocumentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUploadDocumentHandlerDerivesAccessList(t *testing.T) {
	kase := testCase("client-1", []string{"lawyer-1", "lawyer-2"}, models.StatusActive)

	cdb := &mocks.CaseDatabase{}
	cdb.On("FindOne", mock.Anything, bson.M{"_id": kase.ID}).Return(kase, nil)
	cdb.On("UpdateOne", mock.Anything, bson.M{"_id": kase.ID}, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)

	var stored models.Document
	ddb := &mocks.DocumentDatabase{}
	ddb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Document")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(models.Document) }).
		Return(nil, nil)

	ndb := &mocks.NotificationDatabase{}
	ndb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil).Maybe()

	store := &fakeStorage{uploadURL: "https://files.example.com/cases/petition.pdf"}
	d := handlers.Document{
		DB:     ddb,
		CDB:    cdb,
		Store:  store,
		Notify: notify.Dispatcher{DB: ndb},
	}

	body, contentType := multipartUpload(t, kase.ID.Hex(), true)
	req, _ := http.NewRequest("POST", "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(api.WithCaller(req.Context(), api.Caller{ID: "lawyer-1", Role: models.RoleLawyer}))
	rr := httptest.NewRecorder()

	http.HandlerFunc(d.UploadDocumentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "petition.pdf", stored.Details.Name)
	assert.Equal(t, "https://files.example.com/cases/petition.pdf", stored.Details.FileURL)
	assert.Equal(t, "lawyer-1", stored.Details.UploadedBy)
	assert.Equal(t, []string{"client-1", "lawyer-1", "lawyer-2"}, stored.Details.Access)
}

func TestUploadDocumentHandlerStorageOutage(t *testing.T) {
	kase := testCase("client-1", nil, models.StatusOpen)
	cdb := &mocks.CaseDatabase{}
	cdb.On("FindOne", mock.Anything, bson.M{"_id": kase.ID}).Return(kase, nil)

	d := handlers.Document{
		CDB:   cdb,
		Store: &fakeStorage{uploadErr: assert.AnError},
	}

	body, contentType := multipartUpload(t, kase.ID.Hex(), true)
	req, _ := http.NewRequest("POST", "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(api.WithCaller(req.Context(), api.Caller{ID: "client-1", Role: models.RoleClient}))
	rr := httptest.NewRecorder()

	http.HandlerFunc(d.UploadDocumentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestDocumentsByCaseHandlerScopedByAccessList(t *testing.T) {
	kase := testCase("client-1", []string{"lawyer-1"}, models.StatusActive)
	cdb := &mocks.CaseDatabase{}
	cdb.On("FindOne", mock.Anything, bson.M{"_id": kase.ID}).Return(kase, nil)

	var filter bson.M
	ddb := &mocks.DocumentDatabase{}
	ddb.On("Find", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { filter = args.Get(1).(bson.M) }).
		Return([]models.Document{}, nil)

	d := handlers.Document{DB: ddb, CDB: cdb}

	req, _ := http.NewRequest("GET", "/api/v1/documents/case/"+kase.ID.Hex(), nil)
	req = req.WithContext(api.WithCaller(req.Context(), api.Caller{ID: "lawyer-1", Role: models.RoleLawyer}))
	req = mux.SetURLVars(req, map[string]string{"case_id": kase.ID.Hex()})
	rr := httptest.NewRecorder()

	http.HandlerFunc(d.DocumentsByCaseHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, kase.ID.Hex(), filter["document.caseId"])
	assert.Equal(t, "lawyer-1", filter["document.access"])
}

func TestDocumentsByCaseHandlerForbiddenForNonMembers(t *testing.T) {
	kase := testCase("client-1", []string{"lawyer-1"}, models.StatusActive)
	cdb := &mocks.CaseDatabase{}
	cdb.On("FindOne", mock.Anything, bson.M{"_id": kase.ID}).Return(kase, nil)

	ddb := &mocks.DocumentDatabase{}

	d := handlers.Document{DB: ddb, CDB: cdb}

	// a client with no stake in the case gets a hard 403, not an empty list
	req, _ := http.NewRequest("GET", "/api/v1/documents/case/"+kase.ID.Hex(), nil)
	req = req.WithContext(api.WithCaller(req.Context(), api.Caller{ID: "client-9", Role: models.RoleClient}))
	req = mux.SetURLVars(req, map[string]string{"case_id": kase.ID.Hex()})
	rr := httptest.NewRecorder()

	http.HandlerFunc(d.DocumentsByCaseHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	ddb.AssertNotCalled(t, "Find")
}

func TestDocumentsByCaseHandlerAdminSeesAll(t *testing.T) {
	kase := testCase("client-1", nil, models.StatusActive)
	cdb := &mocks.CaseDatabase{}
	cdb.On("FindOne", mock.Anything, bson.M{"_id": kase.ID}).Return(kase, nil)

	var filter bson.M
	ddb := &mocks.DocumentDatabase{}
	ddb.On("Find", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { filter = args.Get(1).(bson.M) }).
		Return(nil, nil)

	d := handlers.Document{DB: ddb, CDB: cdb}

	req, _ := http.NewRequest("GET", "/api/v1/documents/case/"+kase.ID.Hex(), nil)
	req = req.WithContext(api.WithCaller(req.Context(), api.Caller{ID: "admin-1", Role: models.RoleAdmin}))
	req = mux.SetURLVars(req, map[string]string{"case_id": kase.ID.Hex()})
	rr := httptest.NewRecorder()

	http.HandlerFunc(d.DocumentsByCaseHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	_, restricted := filter["document.access"]
	assert.False(t, restricted)
}

func TestDeleteDocumentHandlerForbiddenForNonMembers(t *testing.T) {
	kase := testCase("client-1", []string{"lawyer-1"}, models.StatusActive)
	doc := &models.Document{
		ID: primitive.NewObjectID(),
		Details: models.DocumentDetails{
			UploadedBy: "lawyer-1",
			CaseID:     kase.ID.Hex(),
			FileURL:    "https://files.example.com/cases/petition.pdf",
		},
	}
	ddb := &mocks.DocumentDatabase{}
	ddb.On("FindOne", mock.Anything, bson.M{"_id": doc.ID}).Return(doc, nil)

	cdb := &mocks.CaseDatabase{}
	cdb.On("FindOne", mock.Anything, bson.M{"_id": kase.ID}).Return(kase, nil)

	d := handlers.Document{DB: ddb, CDB: cdb}

	req, _ := http.NewRequest("DELETE", "/api/v1/documents/"+doc.ID.Hex(), nil)
	req = req.WithContext(api.WithCaller(req.Context(), api.Caller{ID: "client-9", Role: models.RoleClient}))
	req = mux.SetURLVars(req, map[string]string{"document_id": doc.ID.Hex()})
	rr := httptest.NewRecorder()

	http.HandlerFunc(d.DeleteDocumentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	ddb.AssertNotCalled(t, "DeleteOne")
}

func TestDeleteDocumentHandlerAllowsAnyCaseMember(t *testing.T) {
	kase := testCase("client-1", []string{"lawyer-1"}, models.StatusActive)
	doc := &models.Document{
		ID: primitive.NewObjectID(),
		Details: models.DocumentDetails{
			UploadedBy: "lawyer-1",
			CaseID:     kase.ID.Hex(),
			FileURL:    "https://files.example.com/cases/petition.pdf",
		},
	}
	ddb := &mocks.DocumentDatabase{}
	ddb.On("FindOne", mock.Anything, bson.M{"_id": doc.ID}).Return(doc, nil)
	ddb.On("DeleteOne", mock.Anything, bson.M{"_id": doc.ID}).Return(int64(1), nil)

	cdb := &mocks.CaseDatabase{}
	cdb.On("FindOne", mock.Anything, bson.M{"_id": kase.ID}).Return(kase, nil)
	cdb.On("UpdateOne", mock.Anything, bson.M{"_id": kase.ID}, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)

	store := &fakeStorage{}
	d := handlers.Document{DB: ddb, CDB: cdb, Store: store}

	// the party deletes a document uploaded by their counsel
	req, _ := http.NewRequest("DELETE", "/api/v1/documents/"+doc.ID.Hex(), nil)
	req = req.WithContext(api.WithCaller(req.Context(), api.Caller{ID: "client-1", Role: models.RoleClient}))
	req = mux.SetURLVars(req, map[string]string{"document_id": doc.ID.Hex()})
	rr := httptest.NewRecorder()

	http.HandlerFunc(d.DeleteDocumentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{doc.Details.FileURL}, store.deleted)
}
