// Package models holds the documents of the report view domain: the four source
// records, the composite view and the sync marker.
package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Reporter is an end user who submits or votes on reports (source collection "users").
// One-time codes, password hashes and per-channel verification flags stay in the
// store: the accessor projects them out.
type Reporter struct {
	ID           primitive.ObjectID `json:"id" bson:"_id"`
	Name         string             `json:"name" bson:"name"`
	Email        string             `json:"email" bson:"email"`
	Phone        string             `json:"phone" bson:"phone"`
	IsVerified   bool               `json:"isVerified" bson:"isVerified"`
	ProfileImage *string            `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
	Points       int64              `json:"points" bson:"points"`
}

// ReporterInternalFields are never read from the reporters collection.
var ReporterInternalFields = []string{"otp", "otpExpiry", "password", "isEmailVerified", "isPhoneVerified", "__v"}
