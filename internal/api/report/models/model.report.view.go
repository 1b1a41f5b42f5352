package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportView is the denormalized composite of one Report with its Reporter,
// Flags and selected Detection. ID is the Report's id.
//
// Pointer fields are null when the relation is missing. Flags and Detections
// are never null.
type ReportView struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	UserID      primitive.ObjectID `json:"userId" bson:"userId"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Location    string             `json:"location" bson:"location"`
	Latitude    *float64           `json:"latitude" bson:"latitude"`
	Longitude   *float64           `json:"longitude" bson:"longitude"`
	Status      string             `json:"status" bson:"status"`
	GreenFlags  int64              `json:"greenFlags" bson:"greenFlags"`
	RedFlags    int64              `json:"redFlags" bson:"redFlags"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`

	OriginalImageURL string `json:"originalImageUrl" bson:"originalImageUrl"`
	ImageURL         string `json:"imageUrl" bson:"imageUrl"` // display image

	SubmittedBy    *string `json:"submittedBy" bson:"submittedBy"`
	SubmitterEmail *string `json:"submitterEmail" bson:"submitterEmail"`
	SubmitterPhone *string `json:"submitterPhone" bson:"submitterPhone"`

	Flags []FlagSummary `json:"flags" bson:"flags"`

	AnnotatedImageURL *string          `json:"annotatedImageUrl" bson:"annotatedImageUrl"`
	Detections        []DetectedObject `json:"detections" bson:"detections"`
	DetectedAt        *time.Time       `json:"detectedAt" bson:"detectedAt"`
}

// ReportViewFilter scopes reads of the materialized collection.
type ReportViewFilter struct {
	UserID *primitive.ObjectID
	Status string
}
