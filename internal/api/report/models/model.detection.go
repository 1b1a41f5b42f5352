package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DetectedObject is one detector hit. BBox is [x1, y1, x2, y2] in image pixels.
type DetectedObject struct {
	Class      string    `json:"class" bson:"class"`
	Confidence float64   `json:"confidence" bson:"confidence"`
	BBox       []float64 `json:"bbox" bson:"bbox"`
}

// Detection is one automated analysis result for a report. A report may have any number.
type Detection struct {
	ID                primitive.ObjectID `json:"id" bson:"_id"`
	ReportID          primitive.ObjectID `json:"reportId" bson:"reportId"`
	AnnotatedImageURL string             `json:"annotatedImageUrl" bson:"annotatedImageUrl"`
	Detections        []DetectedObject   `json:"detections" bson:"detections"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
}
