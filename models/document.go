package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Document holds the structure for the documents collection in mongo
type Document struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details DocumentDetails    `json:"document" bson:"document"`
	Version int32              `json:"__v" bson:"__v"`
}

// DocumentDetails holds the inner document structure. Access is a derived
// field owned exclusively by the document access list manager: it is always
// {case.party} ∪ case.lawyers ∪ {uploadedBy} as of the last recomputation.
type DocumentDetails struct {
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	FileURL     string             `json:"fileUrl" bson:"fileUrl"`
	FileType    string             `json:"fileType" bson:"fileType"`
	FileSize    int64              `json:"fileSize" bson:"fileSize"`
	CaseID      string             `json:"caseId" bson:"caseId"`
	UploadedBy  string             `json:"uploadedBy" bson:"uploadedBy"`
	Access      []string           `json:"access" bson:"access"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt   primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}
