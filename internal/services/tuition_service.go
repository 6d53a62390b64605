package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/etuitionbd/etuition-be/internal/database"
	"github.com/etuitionbd/etuition-be/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// TuitionServiceProvider defines the interface for tuition services.
type TuitionServiceProvider interface {
	Create(ctx context.Context, studentEmail string, in models.TuitionInput) (models.InsertResult, error)
	List(ctx context.Context, q ListQuery) (models.TuitionPage, error)
	Latest(ctx context.Context, n int64) ([]models.Tuition, error)
	Get(ctx context.Context, id string) (models.Tuition, error)
	ListByStudent(ctx context.Context, studentEmail string) ([]models.Tuition, error)
	ListAll(ctx context.Context) ([]models.Tuition, error)
	Update(ctx context.Context, id, studentEmail string, patch models.TuitionPatch) (models.UpdateResult, error)
	Delete(ctx context.Context, id, studentEmail string) (models.DeleteResult, error)
	SetStatus(ctx context.Context, id string, status models.TuitionStatus) (models.UpdateResult, error)
}

// TuitionService provides business logic for tuition listings.
type TuitionService struct {
	db  *database.Database
	now func() time.Time
}

// NewTuitionService creates a new TuitionService.
func NewTuitionService(db *database.Database) *TuitionService {
	return &TuitionService{db: db, now: time.Now}
}

func validateTuitionInput(in models.TuitionInput) error {
	switch {
	case strings.TrimSpace(in.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidInput)
	case strings.TrimSpace(in.Class) == "":
		return fmt.Errorf("%w: class is required", ErrInvalidInput)
	case strings.TrimSpace(in.Location) == "":
		return fmt.Errorf("%w: location is required", ErrInvalidInput)
	case in.Salary < 0:
		return fmt.Errorf("%w: salary must not be negative", ErrInvalidInput)
	}
	return nil
}

// Create stores a new pending listing owned by studentEmail.
func (s *TuitionService) Create(ctx context.Context, studentEmail string, in models.TuitionInput) (models.InsertResult, error) {
	if err := validateTuitionInput(in); err != nil {
		return models.InsertResult{}, err
	}
	tuition := models.Tuition{
		Subject:         strings.TrimSpace(in.Subject),
		Class:           strings.TrimSpace(in.Class),
		Salary:          in.Salary,
		Days:            in.Days,
		Location:        strings.TrimSpace(in.Location),
		Description:     in.Description,
		StudentEmail:    studentEmail,
		Status:          models.TuitionPending,
		PostedAt:        s.now().UTC(),
		ApplicantsCount: 0,
	}
	res, err := s.db.Tuitions.InsertOne(ctx, tuition)
	if err != nil {
		return models.InsertResult{}, fmt.Errorf("insert tuition: %w", err)
	}
	return toInsertResult(res), nil
}

// List returns one page of approved listings matching the search term.
func (s *TuitionService) List(ctx context.Context, q ListQuery) (models.TuitionPage, error) {
	filter := approvedSearchFilter(q.Search)

	total, err := s.db.Tuitions.CountDocuments(ctx, filter)
	if err != nil {
		return models.TuitionPage{}, fmt.Errorf("count tuitions: %w", err)
	}

	opts := newestFirst("postedAt").SetSkip(q.Skip()).SetLimit(q.Limit)
	tuitions, err := findAll[models.Tuition](ctx, s.db.Tuitions, filter, opts)
	if err != nil {
		return models.TuitionPage{}, err
	}

	return models.TuitionPage{
		Tuitions:   tuitions,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: TotalPages(total, q.Limit),
	}, nil
}

// Latest returns the n most recently posted approved listings.
func (s *TuitionService) Latest(ctx context.Context, n int64) ([]models.Tuition, error) {
	opts := newestFirst("postedAt").SetLimit(n)
	return findAll[models.Tuition](ctx, s.db.Tuitions, bson.M{"status": models.TuitionApproved}, opts)
}

// Get returns a single listing by id.
func (s *TuitionService) Get(ctx context.Context, id string) (models.Tuition, error) {
	oid, err := parseID(id)
	if err != nil {
		return models.Tuition{}, err
	}
	return s.getByID(ctx, oid)
}

func (s *TuitionService) getByID(ctx context.Context, oid primitive.ObjectID) (models.Tuition, error) {
	var tuition models.Tuition
	err := s.db.Tuitions.FindOne(ctx, bson.M{"_id": oid}).Decode(&tuition)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Tuition{}, ErrNotFound
	}
	if err != nil {
		return models.Tuition{}, fmt.Errorf("find tuition %s: %w", oid.Hex(), err)
	}
	return tuition, nil
}

// ListByStudent returns the listings posted by studentEmail, newest first.
func (s *TuitionService) ListByStudent(ctx context.Context, studentEmail string) ([]models.Tuition, error) {
	return findAll[models.Tuition](ctx, s.db.Tuitions, bson.M{"studentEmail": studentEmail}, newestFirst("postedAt"))
}

// ListAll returns every listing regardless of status.
func (s *TuitionService) ListAll(ctx context.Context) ([]models.Tuition, error) {
	return findAll[models.Tuition](ctx, s.db.Tuitions, bson.M{}, newestFirst("postedAt"))
}

// Update changes the listing fields of a tuition owned by studentEmail.
// A listing owned by someone else is reported as not found.
func (s *TuitionService) Update(ctx context.Context, id, studentEmail string, patch models.TuitionPatch) (models.UpdateResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return models.UpdateResult{}, err
	}
	set, err := patchFields(patch)
	if err != nil {
		return models.UpdateResult{}, err
	}

	res, err := s.db.Tuitions.UpdateOne(ctx,
		bson.M{"_id": oid, "studentEmail": studentEmail},
		bson.M{"$set": set},
	)
	if err != nil {
		return models.UpdateResult{}, fmt.Errorf("update tuition %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.UpdateResult{}, ErrNotFound
	}
	return toUpdateResult(res), nil
}

func patchFields(p models.TuitionPatch) (bson.M, error) {
	set := bson.M{}
	str := func(field string, v *string, required bool) error {
		if v == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*v)
		if required && trimmed == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidInput, field)
		}
		set[field] = trimmed
		return nil
	}
	if err := str("subject", p.Subject, true); err != nil {
		return nil, err
	}
	if err := str("class", p.Class, true); err != nil {
		return nil, err
	}
	if err := str("location", p.Location, true); err != nil {
		return nil, err
	}
	if err := str("days", p.Days, false); err != nil {
		return nil, err
	}
	if err := str("description", p.Description, false); err != nil {
		return nil, err
	}
	if p.Salary != nil {
		if *p.Salary < 0 {
			return nil, fmt.Errorf("%w: salary must not be negative", ErrInvalidInput)
		}
		set["salary"] = *p.Salary
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	return set, nil
}

// Delete removes a listing owned by studentEmail together with the
// applications that reference it.
func (s *TuitionService) Delete(ctx context.Context, id, studentEmail string) (models.DeleteResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return models.DeleteResult{}, err
	}

	var result models.DeleteResult
	err = s.db.WithTransaction(ctx, func(ctx context.Context) error {
		res, err := s.db.Tuitions.DeleteOne(ctx, bson.M{"_id": oid, "studentEmail": studentEmail})
		if err != nil {
			return fmt.Errorf("delete tuition %s: %w", id, err)
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		if _, err := s.db.Applications.DeleteMany(ctx, bson.M{"tuitionId": oid}); err != nil {
			return fmt.Errorf("delete applications of %s: %w", id, err)
		}
		result = toDeleteResult(res)
		return nil
	})
	if err != nil {
		return models.DeleteResult{}, err
	}
	return result, nil
}

// SetStatus moderates a pending listing. Repeating the current decision
// succeeds without modifying anything.
func (s *TuitionService) SetStatus(ctx context.Context, id string, status models.TuitionStatus) (models.UpdateResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return models.UpdateResult{}, err
	}
	if status != models.TuitionApproved && status != models.TuitionRejected {
		return models.UpdateResult{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	res, err := s.db.Tuitions.UpdateOne(ctx,
		transitionFilter(oid, string(models.TuitionPending), string(status)),
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return models.UpdateResult{}, fmt.Errorf("set tuition status %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.getByID(ctx, oid); err != nil {
			return models.UpdateResult{}, err
		}
		return models.UpdateResult{}, ErrInvalidTransition
	}
	return toUpdateResult(res), nil
}
