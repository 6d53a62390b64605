package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etuitionbd/etuition-be/internal/database"
	"github.com/etuitionbd/etuition-be/internal/metrics"
	"github.com/etuitionbd/etuition-be/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ApplicationServiceProvider defines the interface for application services.
type ApplicationServiceProvider interface {
	Apply(ctx context.Context, tutorEmail, tuitionID string) (models.InsertResult, error)
	HasApplied(ctx context.Context, tuitionID, tutorEmail string) (bool, error)
	ListForTutor(ctx context.Context, tutorEmail string) ([]models.Application, error)
	ListOngoingForTutor(ctx context.Context, tutorEmail string) ([]models.Application, error)
	ListReceived(ctx context.Context, studentEmail string) ([]models.Application, error)
	SetStatus(ctx context.Context, id, studentEmail string, status models.ApplicationStatus) (models.UpdateResult, error)
}

// ApplicationService provides business logic for tutor applications.
type ApplicationService struct {
	db       *database.Database
	tuitions *TuitionService
	now      func() time.Time
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(db *database.Database, tuitions *TuitionService) *ApplicationService {
	return &ApplicationService{db: db, tuitions: tuitions, now: time.Now}
}

// Apply records tutorEmail's application to an approved tuition and bumps
// its applicantsCount. Both writes commit together; a second application
// for the same pair is rejected by the unique index and changes nothing.
func (s *ApplicationService) Apply(ctx context.Context, tutorEmail, tuitionID string) (models.InsertResult, error) {
	oid, err := parseID(tuitionID)
	if err != nil {
		return models.InsertResult{}, err
	}
	tuition, err := s.tuitions.getByID(ctx, oid)
	if err != nil {
		return models.InsertResult{}, err
	}
	if tuition.Status != models.TuitionApproved {
		return models.InsertResult{}, fmt.Errorf("%w: tuition is not open for applications", ErrInvalidInput)
	}

	app := models.Application{
		TuitionID:  oid,
		TutorEmail: tutorEmail,
		Status:     models.ApplicationPending,
		AppliedAt:  s.now().UTC(),
	}

	var result models.InsertResult
	err = s.db.WithTransaction(ctx, func(ctx context.Context) error {
		res, err := s.db.Applications.InsertOne(ctx, app)
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateApplication
		}
		if err != nil {
			return fmt.Errorf("insert application: %w", err)
		}

		upd, err := s.db.Tuitions.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"applicantsCount": 1}})
		if err != nil {
			return fmt.Errorf("increment applicants of %s: %w", tuitionID, err)
		}
		if upd.MatchedCount == 0 {
			return ErrNotFound
		}
		result = toInsertResult(res)
		return nil
	})
	if err != nil {
		return models.InsertResult{}, err
	}
	metrics.ApplicationsCreated.Inc()
	return result, nil
}

// HasApplied reports whether tutorEmail already applied to the tuition.
func (s *ApplicationService) HasApplied(ctx context.Context, tuitionID, tutorEmail string) (bool, error) {
	oid, err := parseID(tuitionID)
	if err != nil {
		return false, err
	}
	n, err := s.db.Applications.CountDocuments(ctx, bson.M{"tuitionId": oid, "tutorEmail": tutorEmail})
	if err != nil {
		return false, fmt.Errorf("check application: %w", err)
	}
	return n > 0, nil
}

// ListForTutor returns all of a tutor's applications with their tuitions.
func (s *ApplicationService) ListForTutor(ctx context.Context, tutorEmail string) ([]models.Application, error) {
	return aggregateAll[models.Application](ctx, s.db.Applications,
		withTuition(bson.M{"tutorEmail": tutorEmail}))
}

// ListOngoingForTutor returns the tutor's accepted applications.
func (s *ApplicationService) ListOngoingForTutor(ctx context.Context, tutorEmail string) ([]models.Application, error) {
	return aggregateAll[models.Application](ctx, s.db.Applications,
		withTuition(bson.M{"tutorEmail": tutorEmail, "status": models.ApplicationAccepted}))
}

// ListReceived returns applications made to listings owned by studentEmail.
// The owner's tuition ids are resolved first so only their applications are
// joined.
func (s *ApplicationService) ListReceived(ctx context.Context, studentEmail string) ([]models.Application, error) {
	owned, err := findAll[struct {
		ID primitive.ObjectID `bson:"_id"`
	}](ctx, s.db.Tuitions, bson.M{"studentEmail": studentEmail}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return []models.Application{}, nil
	}
	ids := make([]primitive.ObjectID, 0, len(owned))
	for _, t := range owned {
		ids = append(ids, t.ID)
	}
	return aggregateAll[models.Application](ctx, s.db.Applications, receivedPipeline(ids))
}

func receivedPipeline(tuitionIDs []primitive.ObjectID) mongo.Pipeline {
	return withTuition(bson.M{"tuitionId": bson.M{"$in": tuitionIDs}})
}

// withTuition builds a pipeline that filters applications by match and joins
// each with its tuition, newest first.
func withTuition(match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         database.TuitionsCollection,
			"localField":   "tuitionId",
			"foreignField": "_id",
			"as":           "tuition",
		}}},
		bson.D{{Key: "$unwind", Value: bson.M{"path": "$tuition", "preserveNullAndEmptyArrays": true}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "appliedAt", Value: -1}}}},
	}
}

// SetStatus lets the owner of the referenced tuition accept or reject a
// pending application.
func (s *ApplicationService) SetStatus(ctx context.Context, id, studentEmail string, status models.ApplicationStatus) (models.UpdateResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return models.UpdateResult{}, err
	}
	if status != models.ApplicationAccepted && status != models.ApplicationRejected {
		return models.UpdateResult{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	app, err := s.getByID(ctx, oid)
	if err != nil {
		return models.UpdateResult{}, err
	}
	tuition, err := s.tuitions.getByID(ctx, app.TuitionID)
	if err != nil {
		return models.UpdateResult{}, err
	}
	if tuition.StudentEmail != studentEmail {
		return models.UpdateResult{}, fmt.Errorf("%w: application belongs to another student's tuition", ErrForbidden)
	}

	res, err := s.db.Applications.UpdateOne(ctx,
		transitionFilter(oid, string(models.ApplicationPending), string(status)),
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return models.UpdateResult{}, fmt.Errorf("set application status %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.UpdateResult{}, ErrInvalidTransition
	}
	return toUpdateResult(res), nil
}

func (s *ApplicationService) getByID(ctx context.Context, oid primitive.ObjectID) (models.Application, error) {
	var app models.Application
	err := s.db.Applications.FindOne(ctx, bson.M{"_id": oid}).Decode(&app)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Application{}, ErrNotFound
	}
	if err != nil {
		return models.Application{}, fmt.Errorf("find application %s: %w", oid.Hex(), err)
	}
	return app, nil
}
