package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	FlagTypePositive = "positive"
	FlagTypeNegative = "negative"
)

// Flag is one reporter's vote on one report. UserName and UserEmail are copied
// at creation and not kept in sync with the Reporter.
type Flag struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	ReportID  primitive.ObjectID `json:"reportId" bson:"reportId"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	UserName  string             `json:"userName" bson:"userName"`
	UserEmail string             `json:"userEmail" bson:"userEmail"`
	FlagType  string             `json:"flagType" bson:"flagType"`
	Reason    string             `json:"reason,omitempty" bson:"reason,omitempty"` // negative flags only
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// FlagSummary is the Flag as embedded in a ReportView.
type FlagSummary struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	UserName  string             `json:"userName" bson:"userName"`
	UserEmail string             `json:"userEmail" bson:"userEmail"`
	FlagType  string             `json:"flagType" bson:"flagType"`
	Reason    string             `json:"reason,omitempty" bson:"reason,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

func (f Flag) Summary() FlagSummary {
	return FlagSummary{
		ID:        f.ID,
		UserID:    f.UserID,
		UserName:  f.UserName,
		UserEmail: f.UserEmail,
		FlagType:  f.FlagType,
		Reason:    f.Reason,
		CreatedAt: f.CreatedAt,
	}
}
