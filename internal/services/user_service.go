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
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LoginInput is the profile the client sends after signing in.
type LoginInput struct {
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Image string      `json:"image"`
	Role  models.Role `json:"role"`
}

// ProfileInput holds the self-editable profile fields.
type ProfileInput struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	UpsertOnLogin(ctx context.Context, in LoginInput) (models.UpdateResult, error)
	UserRole(ctx context.Context, email string) (models.Role, error)
	UpdateProfile(ctx context.Context, email string, in ProfileInput) (models.UpdateResult, error)
	ListTutors(ctx context.Context, limit int64) ([]models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	SetRole(ctx context.Context, id string, role models.Role) (models.UpdateResult, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db  *database.Database
	now func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(db *database.Database) *UserService {
	return &UserService{db: db, now: time.Now}
}

// UpsertOnLogin records a login. An existing user only gets last_loggedIn
// refreshed; a new user is inserted with created_at equal to last_loggedIn.
// Sign-up may pick student or tutor, any other requested role is dropped.
func (s *UserService) UpsertOnLogin(ctx context.Context, in LoginInput) (models.UpdateResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return models.UpdateResult{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	now := s.now().UTC()
	onInsert := bson.M{"created_at": now}
	if in.Name != "" {
		onInsert["name"] = in.Name
	}
	if in.Image != "" {
		onInsert["image"] = in.Image
	}
	if in.Role == models.RoleStudent || in.Role == models.RoleTutor {
		onInsert["role"] = in.Role
	}

	update := bson.M{
		"$set":         bson.M{"last_loggedIn": now},
		"$setOnInsert": onInsert,
	}
	res, err := s.db.Users.UpdateOne(ctx, bson.M{"email": email}, update, options.Update().SetUpsert(true))
	if err != nil {
		return models.UpdateResult{}, fmt.Errorf("upsert user %s: %w", email, err)
	}
	return toUpdateResult(res), nil
}

// normalizeEmail lowercases emails the way Firebase reports them in tokens.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRole returns the stored role for email, or RoleUnset when there is no
// such user.
func (s *UserService) UserRole(ctx context.Context, email string) (models.Role, error) {
	var user models.User
	opts := options.FindOne().SetProjection(bson.M{"role": 1})
	err := s.db.Users.FindOne(ctx, bson.M{"email": normalizeEmail(email)}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RoleUnset, nil
	}
	if err != nil {
		return models.RoleUnset, fmt.Errorf("find role for %s: %w", email, err)
	}
	return user.Role, nil
}

// UpdateProfile changes the name and image of the user with email.
func (s *UserService) UpdateProfile(ctx context.Context, email string, in ProfileInput) (models.UpdateResult, error) {
	set := bson.M{}
	if in.Name != "" {
		set["name"] = in.Name
	}
	if in.Image != "" {
		set["image"] = in.Image
	}
	if len(set) == 0 {
		return models.UpdateResult{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	res, err := s.db.Users.UpdateOne(ctx, bson.M{"email": normalizeEmail(email)}, bson.M{"$set": set})
	if err != nil {
		return models.UpdateResult{}, fmt.Errorf("update profile %s: %w", email, err)
	}
	if res.MatchedCount == 0 {
		return models.UpdateResult{}, ErrNotFound
	}
	return toUpdateResult(res), nil
}

// ListTutors returns users with the tutor role; limit 0 means all of them.
func (s *UserService) ListTutors(ctx context.Context, limit int64) ([]models.User, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return findAll[models.User](ctx, s.db.Users, bson.M{"role": models.RoleTutor}, opts)
}

// ListAll returns every user, newest first.
func (s *UserService) ListAll(ctx context.Context) ([]models.User, error) {
	return findAll[models.User](ctx, s.db.Users, bson.M{}, newestFirst("created_at"))
}

// SetRole assigns role to the user with the given id.
func (s *UserService) SetRole(ctx context.Context, id string, role models.Role) (models.UpdateResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return models.UpdateResult{}, err
	}
	if !role.IsValid() {
		return models.UpdateResult{}, fmt.Errorf("%w: role %q", ErrInvalidInput, role)
	}

	res, err := s.db.Users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return models.UpdateResult{}, fmt.Errorf("set role on %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.UpdateResult{}, ErrNotFound
	}
	return toUpdateResult(res), nil
}
