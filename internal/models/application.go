package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApplicationStatus is the decision state of a tutor's application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application links a tutor to a tuition they applied for.
type Application struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	TuitionID  primitive.ObjectID `bson:"tuitionId" json:"tuitionId"`
	TutorEmail string             `bson:"tutorEmail" json:"tutorEmail"`
	Status     ApplicationStatus  `bson:"status" json:"status"`
	AppliedAt  time.Time          `bson:"appliedAt" json:"appliedAt"`

	// Tuition is populated by listing queries that join the referenced listing.
	Tuition *Tuition `bson:"tuition,omitempty" json:"tuition,omitempty"`
}
