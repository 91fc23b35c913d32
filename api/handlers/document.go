package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/adhivakta/adhivakta-api/access"
	"github.com/adhivakta/adhivakta-api/api"
	"github.com/adhivakta/adhivakta-api/config"
	"github.com/adhivakta/adhivakta-api/databases"
	"github.com/adhivakta/adhivakta-api/docaccess"
	"github.com/adhivakta/adhivakta-api/models"
	"github.com/adhivakta/adhivakta-api/notify"
	"github.com/adhivakta/adhivakta-api/storage"
)

// maxUploadBytes caps document uploads at 25MB
const maxUploadBytes = 25 << 20

// Document exported for testing purposes
type Document struct {
	DB     databases.DocumentDatabase
	CDB    databases.CaseDatabase
	Access access.Evaluator
	Store  storage.Storage
	Notify notify.Dispatcher
}

// UploadDocumentHandler stores a file against a case. The multipart form
// must carry the file under "file" and the case id under "caseId". Access is
// derived from the case at upload time.
func (d Document) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		config.ErrorStatus("file is required", http.StatusBadRequest, w, err)
		return
	}
	defer file.Close()

	caseID := r.FormValue("caseId")
	bID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("invalid case ID", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	kase, err := d.CDB.FindOne(ctx, bson.M{"_id": bID})
	if err != nil {
		config.ErrorStatus("failed to find case", http.StatusNotFound, w, err)
		return
	}
	if !d.Access.CanUploadDocument(who, kase) {
		config.AppErrorStatus(w, models.NewForbidden("you do not have access to this case"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		config.ErrorStatus("failed to read file", http.StatusBadRequest, w, err)
		return
	}
	if len(data) > maxUploadBytes {
		config.AppErrorStatus(w, models.NewValidationError("file exceeds the 25MB limit"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	fileURL, err := d.Store.Upload(ctx, data, "cases/"+caseID, header.Filename, contentType)
	if err != nil {
		config.AppErrorStatus(w, models.NewUnavailable("file storage is unavailable", err))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	doc := models.Document{
		ID: primitive.NewObjectID(),
		Details: models.DocumentDetails{
			Name:        header.Filename,
			Description: r.FormValue("description"),
			FileURL:     fileURL,
			FileType:    contentType,
			FileSize:    int64(len(data)),
			CaseID:      caseID,
			UploadedBy:  who.ID,
			Access:      docaccess.Compute(kase, who.ID),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	_, err = d.DB.InsertOne(ctx, doc)
	if err != nil {
		config.ErrorStatus("failed to create document", http.StatusInternalServerError, w, err)
		return
	}

	_, err = d.CDB.UpdateOne(ctx,
		bson.M{"_id": bID},
		bson.M{
			"$push": bson.M{"case.documents": doc.ID.Hex()},
			"$set":  bson.M{"case.updatedAt": now},
			"$inc":  bson.M{"__v": 1},
		},
	)
	if err != nil {
		zap.S().Errorw("failed to link document to case", "caseId", caseID, "documentId", doc.ID.Hex(), "error", err)
	}

	d.notifyUpload(ctx, kase, who.ID, &doc)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(doc)
}

// DocumentsByCaseHandler lists the case documents visible to the caller.
// Case read access gates the listing outright; within it, results are
// filtered by the stored access list, so a lawyer removed from the case
// stops seeing documents as soon as the lists resync.
func (d Document) DocumentsByCaseHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
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

	kase, err := d.CDB.FindOne(ctx, bson.M{"_id": bID})
	if err != nil {
		config.ErrorStatus("failed to find case", http.StatusNotFound, w, err)
		return
	}
	if !d.Access.CanRead(who, kase) {
		config.AppErrorStatus(w, models.NewForbidden("you do not have access to this case"))
		return
	}

	filter := bson.M{"document.caseId": caseID}
	if who.Role != models.RoleAdmin {
		filter["document.access"] = who.ID
	}
	docs, err := d.DB.Find(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to get documents", http.StatusInternalServerError, w, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"data": docs})
}

// DeleteDocumentHandler removes a document and its stored file. Anyone with
// read access to the owning case may delete: the party, assigned counsel or
// an admin.
func (d Document) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	docID := mux.Vars(r)["document_id"]
	bID, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		config.ErrorStatus("invalid document ID", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	doc, err := d.DB.FindOne(ctx, bson.M{"_id": bID})
	if err != nil {
		config.ErrorStatus("failed to find document", http.StatusNotFound, w, err)
		return
	}
	caseOID, err := primitive.ObjectIDFromHex(doc.Details.CaseID)
	if err != nil {
		config.ErrorStatus("document has an invalid case reference", http.StatusInternalServerError, w, err)
		return
	}
	kase, err := d.CDB.FindOne(ctx, bson.M{"_id": caseOID})
	if err != nil {
		config.ErrorStatus("failed to find case", http.StatusNotFound, w, err)
		return
	}
	if !d.Access.CanRead(who, kase) {
		config.AppErrorStatus(w, models.NewForbidden("you do not have access to this case"))
		return
	}

	if err := d.Store.Delete(ctx, doc.Details.FileURL); err != nil {
		config.AppErrorStatus(w, models.NewUnavailable("file storage is unavailable", err))
		return
	}

	deleted, err := d.DB.DeleteOne(ctx, bson.M{"_id": bID})
	if err != nil || deleted == 0 {
		config.ErrorStatus("failed to delete document", http.StatusInternalServerError, w, err)
		return
	}

	_, err = d.CDB.UpdateOne(ctx,
		bson.M{"_id": caseOID},
		bson.M{
			"$pull": bson.M{"case.documents": docID},
			"$inc":  bson.M{"__v": 1},
		},
	)
	if err != nil {
		zap.S().Errorw("failed to unlink document from case", "caseId", doc.Details.CaseID, "documentId", docID, "error", err)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(fmt.Sprintf(`{"deleted": "%s"}`, docID)))
}

func (d Document) notifyUpload(ctx context.Context, kase *models.Case, actorID string, doc *models.Document) {
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
	err := d.Notify.Emit(ctx, recipients, models.NotificationDetails{
		Type:          models.NotificationDocumentUpload,
		Title:         fmt.Sprintf("New document on case %s", kase.Details.CaseNumber),
		Message:       fmt.Sprintf("%s was uploaded to case %s", doc.Details.Name, kase.Details.CaseNumber),
		RelatedEntity: &models.RelatedEntity{Type: "document", ID: doc.ID.Hex()},
	})
	if err != nil {
		zap.S().Errorw("failed to emit document notification", "documentId", doc.ID.Hex(), "error", err)
	}
}
