package services

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors returned by the services. Handlers map them to HTTP statuses.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidTransition    = errors.New("status has already been decided")
	ErrDuplicateApplication = errors.New("already applied to this tuition")
	ErrForbidden            = errors.New("forbidden")
)

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}
