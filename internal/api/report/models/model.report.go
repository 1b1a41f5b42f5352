package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ReportStatusPending    = "pending"
	ReportStatusInProgress = "in_progress"
	ReportStatusResolved   = "resolved"
	ReportStatusRejected   = "rejected"
)

// Report is a submitted issue. Status is carried through unchanged.
// GreenFlags and RedFlags are counters maintained by the writer side; they are
// copied as-is and may differ from the number of Flag records.
type Report struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	UserID      primitive.ObjectID `json:"userId" bson:"userId"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Location    string             `json:"location" bson:"location"`
	Latitude    *float64           `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude   *float64           `json:"longitude,omitempty" bson:"longitude,omitempty"`
	Status      string             `json:"status" bson:"status"`
	ImageURL    string             `json:"imageUrl" bson:"imageUrl"`
	SubmittedBy string             `json:"submittedBy" bson:"submittedBy"` // cached at creation, not used by the view
	GreenFlags  int64              `json:"greenFlags" bson:"greenFlags"`
	RedFlags    int64              `json:"redFlags" bson:"redFlags"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ReportFilter scopes FindReports. A nil ReporterID means every report.
type ReportFilter struct {
	ReporterID *primitive.ObjectID
}
