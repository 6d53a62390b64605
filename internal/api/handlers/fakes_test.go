package handlers

import (
	"context"

	"github.com/etuitionbd/etuition-be/internal/models"
	"github.com/etuitionbd/etuition-be/internal/services"
)

type fakeUsers struct {
	login   services.LoginInput
	profile services.ProfileInput
	email   string
	limit   int64
	role    models.Role
	err     error
}

func (f *fakeUsers) UpsertOnLogin(_ context.Context, in services.LoginInput) (models.UpdateResult, error) {
	f.login = in
	return models.UpdateResult{Acknowledged: true, UpsertedID: "new-id"}, f.err
}

func (f *fakeUsers) UserRole(_ context.Context, email string) (models.Role, error) {
	f.email = email
	return f.role, f.err
}

func (f *fakeUsers) UpdateProfile(_ context.Context, email string, in services.ProfileInput) (models.UpdateResult, error) {
	f.email, f.profile = email, in
	return models.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, f.err
}

func (f *fakeUsers) ListTutors(_ context.Context, limit int64) ([]models.User, error) {
	f.limit = limit
	return []models.User{{Email: "tutor@example.com", Role: models.RoleTutor}}, f.err
}

func (f *fakeUsers) ListAll(context.Context) ([]models.User, error) {
	return []models.User{}, f.err
}

func (f *fakeUsers) SetRole(_ context.Context, _ string, role models.Role) (models.UpdateResult, error) {
	f.role = role
	return models.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, f.err
}

type fakeTuitions struct {
	query  services.ListQuery
	email  string
	id     string
	input  models.TuitionInput
	patch  models.TuitionPatch
	status models.TuitionStatus
	n      int64
	err    error
}

func (f *fakeTuitions) Create(_ context.Context, email string, in models.TuitionInput) (models.InsertResult, error) {
	f.email, f.input = email, in
	return models.InsertResult{Acknowledged: true, InsertedID: "t1"}, f.err
}

func (f *fakeTuitions) List(_ context.Context, q services.ListQuery) (models.TuitionPage, error) {
	f.query = q
	return models.TuitionPage{Tuitions: []models.Tuition{}, Page: q.Page, Limit: q.Limit}, f.err
}

func (f *fakeTuitions) Latest(_ context.Context, n int64) ([]models.Tuition, error) {
	f.n = n
	return []models.Tuition{}, f.err
}

func (f *fakeTuitions) Get(_ context.Context, id string) (models.Tuition, error) {
	f.id = id
	return models.Tuition{Subject: "Math"}, f.err
}

func (f *fakeTuitions) ListByStudent(_ context.Context, email string) ([]models.Tuition, error) {
	f.email = email
	return []models.Tuition{}, f.err
}

func (f *fakeTuitions) ListAll(context.Context) ([]models.Tuition, error) {
	return []models.Tuition{}, f.err
}

func (f *fakeTuitions) Update(_ context.Context, id, email string, p models.TuitionPatch) (models.UpdateResult, error) {
	f.id, f.email, f.patch = id, email, p
	return models.UpdateResult{Acknowledged: true, MatchedCount: 1}, f.err
}

func (f *fakeTuitions) Delete(_ context.Context, id, email string) (models.DeleteResult, error) {
	f.id, f.email = id, email
	return models.DeleteResult{Acknowledged: true, DeletedCount: 1}, f.err
}

func (f *fakeTuitions) SetStatus(_ context.Context, id string, s models.TuitionStatus) (models.UpdateResult, error) {
	f.id, f.status = id, s
	return models.UpdateResult{Acknowledged: true, MatchedCount: 1}, f.err
}

type fakeApplications struct {
	email     string
	tuitionID string
	id        string
	status    models.ApplicationStatus
	applied   bool
	err       error
}

func (f *fakeApplications) Apply(_ context.Context, email, tuitionID string) (models.InsertResult, error) {
	f.email, f.tuitionID = email, tuitionID
	return models.InsertResult{Acknowledged: true, InsertedID: "a1"}, f.err
}

func (f *fakeApplications) HasApplied(_ context.Context, tuitionID, email string) (bool, error) {
	f.tuitionID, f.email = tuitionID, email
	return f.applied, f.err
}

func (f *fakeApplications) ListForTutor(_ context.Context, email string) ([]models.Application, error) {
	f.email = email
	return []models.Application{}, f.err
}

func (f *fakeApplications) ListOngoingForTutor(_ context.Context, email string) ([]models.Application, error) {
	f.email = email
	return []models.Application{}, f.err
}

func (f *fakeApplications) ListReceived(_ context.Context, email string) ([]models.Application, error) {
	f.email = email
	return []models.Application{}, f.err
}

func (f *fakeApplications) SetStatus(_ context.Context, id, email string, s models.ApplicationStatus) (models.UpdateResult, error) {
	f.id, f.email, f.status = id, email, s
	return models.UpdateResult{Acknowledged: true, MatchedCount: 1}, f.err
}
