package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TuitionStatus is the moderation state of a listing.
type TuitionStatus string

const (
	TuitionPending  TuitionStatus = "pending"
	TuitionApproved TuitionStatus = "approved"
	TuitionRejected TuitionStatus = "rejected"
)

// Tuition is a tutoring job posted by a student.
type Tuition struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Subject         string             `bson:"subject" json:"subject"`
	Class           string             `bson:"class" json:"class"`
	Salary          float64            `bson:"salary" json:"salary"`
	Days            string             `bson:"days" json:"days"`
	Location        string             `bson:"location" json:"location"`
	Description     string             `bson:"description" json:"description"`
	StudentEmail    string             `bson:"studentEmail" json:"studentEmail"`
	Status          TuitionStatus      `bson:"status" json:"status"`
	PostedAt        time.Time          `bson:"postedAt" json:"postedAt"`
	ApplicantsCount int64              `bson:"applicantsCount" json:"applicantsCount"`
}

// TuitionInput holds the fields a student may set on their own listing.
type TuitionInput struct {
	Subject     string  `json:"subject"`
	Class       string  `json:"class"`
	Salary      float64 `json:"salary"`
	Days        string  `json:"days"`
	Location    string  `json:"location"`
	Description string  `json:"description"`
}

// TuitionPage is one page of the public listing.
type TuitionPage struct {
	Tuitions   []Tuition `json:"tuitions"`
	Total      int64     `json:"total"`
	Page       int64     `json:"page"`
	Limit      int64     `json:"limit"`
	TotalPages int64     `json:"totalPages"`
}

// TuitionPatch carries the listing fields a student chose to change.
type TuitionPatch struct {
	Subject     *string  `json:"subject,omitempty"`
	Class       *string  `json:"class,omitempty"`
	Salary      *float64 `json:"salary,omitempty"`
	Days        *string  `json:"days,omitempty"`
	Location    *string  `json:"location,omitempty"`
	Description *string  `json:"description,omitempty"`
}
