package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/etuitionbd/etuition-be/internal/auth"
	"github.com/etuitionbd/etuition-be/internal/models"
	"github.com/etuitionbd/etuition-be/internal/services"
	"github.com/go-chi/chi/v5"
)

// request builds a request carrying the verified email and chi URL params.
func request(method, target, body, email string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := req.Context()
	if email != "" {
		ctx = auth.WithEmail(ctx, email)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&auth.Error{Status: http.StatusUnauthorized, Message: "unauthorized access", Detail: "expired"}, http.StatusUnauthorized},
		{&auth.Error{Status: http.StatusForbidden, Message: "Admin only actions!"}, http.StatusForbidden},
		{&auth.Error{Status: http.StatusInternalServerError, Message: "misordered"}, http.StatusInternalServerError},
		{services.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: other student", services.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("%w: \"zz\"", services.ErrInvalidID), http.StatusBadRequest},
		{services.ErrInvalidInput, http.StatusBadRequest},
		{services.ErrInvalidStatus, http.StatusBadRequest},
		{services.ErrInvalidTransition, http.StatusBadRequest},
		{services.ErrDuplicateApplication, http.StatusBadRequest},
		{errors.New("socket closed"), http.StatusInternalServerError},
		{fmt.Errorf("find tuitions: %w", context.Canceled), statusClientClosedRequest},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		if rec.Code != tc.want {
			t.Errorf("WriteError(%v) status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("mongo: password=hunter2"))

	var body errorBody
	decodeBody(t, rec, &body)
	if strings.Contains(body.Message+body.Error, "hunter2") {
		t.Fatalf("internal detail leaked: %+v", body)
	}
	if body.IncidentID == "" {
		t.Fatal("500 response should carry an incident id")
	}
}

func TestWriteError_UnauthorizedDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &auth.Error{Status: http.StatusUnauthorized, Message: "unauthorized access", Detail: "token is expired"}
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), err)

	var body errorBody
	decodeBody(t, rec, &body)
	if body.Message != "unauthorized access" || body.Error != "token is expired" {
		t.Fatalf("body = %+v", body)
	}
}

func TestUserHandler_Save(t *testing.T) {
	users := &fakeUsers{}
	h := NewUserHandler(users)

	rec := serve(h.Save, request(http.MethodPost, "/user", "{", "", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body status = %d", rec.Code)
	}

	body := `{"email":"new@example.com","name":"New","image":"https://img","role":"tutor"}`
	rec = serve(h.Save, request(http.MethodPost, "/user", body, "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if users.login.Email != "new@example.com" || users.login.Role != models.RoleTutor {
		t.Fatalf("login = %+v", users.login)
	}
	var res models.UpdateResult
	decodeBody(t, rec, &res)
	if res.UpsertedID != "new-id" {
		t.Fatalf("result = %+v", res)
	}
}

func TestUserHandler_GetRole(t *testing.T) {
	users := &fakeUsers{role: models.RoleStudent}
	h := NewUserHandler(users)

	rec := serve(h.GetRole, request(http.MethodGet, "/user/role", "", "s@example.com", nil))
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["role"] != "student" || users.email != "s@example.com" {
		t.Fatalf("role body = %v, looked up %q", body, users.email)
	}
}

func TestUserHandler_GetRole_WithoutPipeline(t *testing.T) {
	h := NewUserHandler(&fakeUsers{})
	rec := serve(h.GetRole, request(http.MethodGet, "/user/role", "", "", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	users := &fakeUsers{}
	h := NewUserHandler(users)

	req := request(http.MethodPatch, "/users/other@example.com", `{"name":"X"}`, "me@example.com",
		map[string]string{"email": "other@example.com"})
	if rec := serve(h.UpdateProfile, req); rec.Code != http.StatusForbidden {
		t.Fatalf("editing another profile: status = %d", rec.Code)
	}

	req = request(http.MethodPatch, "/users/me%40example.com", `{"name":"Me","image":"i"}`, "me@example.com",
		map[string]string{"email": "me%40example.com"})
	if rec := serve(h.UpdateProfile, req); rec.Code != http.StatusOK {
		t.Fatalf("own profile: status = %d", rec.Code)
	}
	if users.email != "me@example.com" || users.profile.Name != "Me" {
		t.Fatalf("update = %q %+v", users.email, users.profile)
	}
}

func TestUserHandler_Tutors(t *testing.T) {
	users := &fakeUsers{}
	h := NewUserHandler(users)

	serve(h.HomeTutors, request(http.MethodGet, "/home/tutors", "", "", nil))
	if users.limit != services.HomeTutors {
		t.Fatalf("home limit = %d", users.limit)
	}
	serve(h.ListTutors, request(http.MethodGet, "/tutors", "", "", nil))
	if users.limit != 0 {
		t.Fatalf("list limit = %d", users.limit)
	}
}

func TestUserHandler_SetRole(t *testing.T) {
	users := &fakeUsers{}
	h := NewUserHandler(users)

	req := request(http.MethodPatch, "/users/role/x", `{"role":"admin"}`, "admin@example.com", map[string]string{"id": "x"})
	if rec := serve(h.SetRole, req); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if users.role != models.RoleAdmin {
		t.Fatalf("role = %q", users.role)
	}

	users.err = fmt.Errorf("%w: role %q", services.ErrInvalidInput, "owner")
	req = request(http.MethodPatch, "/users/role/x", `{"role":"owner"}`, "admin@example.com", map[string]string{"id": "x"})
	if rec := serve(h.SetRole, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid role status = %d", rec.Code)
	}
}

func TestTuitionHandler_List(t *testing.T) {
	tuitions := &fakeTuitions{}
	h := NewTuitionHandler(tuitions)

	rec := serve(h.List, request(http.MethodGet, "/tuitions?page=2&limit=9&search=Physics", "", "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := services.ListQuery{Page: 2, Limit: 9, Search: "Physics"}
	if tuitions.query != want {
		t.Fatalf("query = %+v, want %+v", tuitions.query, want)
	}
	var page models.TuitionPage
	decodeBody(t, rec, &page)
	if page.Tuitions == nil {
		t.Fatal("tuitions should encode as an empty array")
	}
}

func TestTuitionHandler_Home(t *testing.T) {
	tuitions := &fakeTuitions{}
	serve(NewTuitionHandler(tuitions).Home, request(http.MethodGet, "/home/tuitions", "", "", nil))
	if tuitions.n != services.HomeTuitions {
		t.Fatalf("latest n = %d", tuitions.n)
	}
}

func TestTuitionHandler_GetNotFound(t *testing.T) {
	h := NewTuitionHandler(&fakeTuitions{err: services.ErrNotFound})
	rec := serve(h.Get, request(http.MethodGet, "/tuition/x", "", "", map[string]string{"id": "x"}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTuitionHandler_CreateUsesVerifiedEmail(t *testing.T) {
	tuitions := &fakeTuitions{}
	h := NewTuitionHandler(tuitions)

	body := `{"subject":"Math","class":"8","salary":5000,"days":"3","location":"Dhaka","studentEmail":"spoof@example.com"}`
	rec := serve(h.Create, request(http.MethodPost, "/tuitions", body, "owner@example.com", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if tuitions.email != "owner@example.com" {
		t.Fatalf("owner = %q", tuitions.email)
	}
	if tuitions.input.Subject != "Math" || tuitions.input.Salary != 5000 {
		t.Fatalf("input = %+v", tuitions.input)
	}
}

func TestTuitionHandler_MineUsesVerifiedEmail(t *testing.T) {
	tuitions := &fakeTuitions{}
	h := NewTuitionHandler(tuitions)
	serve(h.Mine, request(http.MethodGet, "/my-tuitions?email=spoof@example.com", "", "owner@example.com", nil))
	if tuitions.email != "owner@example.com" {
		t.Fatalf("filtered by %q", tuitions.email)
	}
}

func TestTuitionHandler_UpdateAndDelete(t *testing.T) {
	tuitions := &fakeTuitions{}
	h := NewTuitionHandler(tuitions)
	params := map[string]string{"id": "abc"}

	rec := serve(h.Update, request(http.MethodPatch, "/tuition/abc", `{"salary":7000}`, "owner@example.com", params))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	if tuitions.patch.Salary == nil || *tuitions.patch.Salary != 7000 || tuitions.patch.Subject != nil {
		t.Fatalf("patch = %+v", tuitions.patch)
	}

	tuitions.err = services.ErrNotFound
	rec = serve(h.Delete, request(http.MethodDelete, "/tuition/abc", "", "intruder@example.com", params))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete by non-owner status = %d", rec.Code)
	}
	if tuitions.id != "abc" || tuitions.email != "intruder@example.com" {
		t.Fatalf("delete scoped by %q/%q", tuitions.id, tuitions.email)
	}
}

func TestTuitionHandler_SetStatus(t *testing.T) {
	tuitions := &fakeTuitions{}
	h := NewTuitionHandler(tuitions)
	params := map[string]string{"id": "abc"}

	rec := serve(h.SetStatus, request(http.MethodPatch, "/tuition/status/abc", `{"status":"approved"}`, "admin@example.com", params))
	if rec.Code != http.StatusOK || tuitions.status != models.TuitionApproved {
		t.Fatalf("status = %d, set %q", rec.Code, tuitions.status)
	}

	tuitions.err = services.ErrInvalidTransition
	rec = serve(h.SetStatus, request(http.MethodPatch, "/tuition/status/abc", `{"status":"rejected"}`, "admin@example.com", params))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("decided listing status = %d", rec.Code)
	}
}

func TestApplicationHandler_Check(t *testing.T) {
	apps := &fakeApplications{applied: true}
	h := NewApplicationHandler(apps)

	params := map[string]string{"tuitionId": "t1", "email": "someone@example.com"}
	if rec := serve(h.Check, request(http.MethodGet, "/application/check/t1/someone@example.com", "", "tutor@example.com", params)); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign check status = %d", rec.Code)
	}

	params["email"] = "Tutor@Example.com"
	rec := serve(h.Check, request(http.MethodGet, "/application/check/t1/Tutor@Example.com", "", "tutor@example.com", params))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]bool
	decodeBody(t, rec, &body)
	if !body["applied"] || apps.tuitionID != "t1" || apps.email != "tutor@example.com" {
		t.Fatalf("body = %v, args %q %q", body, apps.tuitionID, apps.email)
	}
}

func TestApplicationHandler_Apply(t *testing.T) {
	apps := &fakeApplications{}
	h := NewApplicationHandler(apps)

	rec := serve(h.Apply, request(http.MethodPost, "/applications", `{"tuitionId":"t1","tutorEmail":"spoof@example.com"}`, "tutor@example.com", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if apps.email != "tutor@example.com" || apps.tuitionID != "t1" {
		t.Fatalf("apply args %q %q", apps.email, apps.tuitionID)
	}

	apps.err = services.ErrDuplicateApplication
	rec = serve(h.Apply, request(http.MethodPost, "/applications", `{"tuitionId":"t1"}`, "tutor@example.com", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
}

func TestApplicationHandler_Lists(t *testing.T) {
	apps := &fakeApplications{}
	h := NewApplicationHandler(apps)

	for name, fn := range map[string]http.HandlerFunc{"received": h.Received, "mine": h.Mine, "ongoing": h.Ongoing} {
		apps.email = ""
		rec := serve(fn, request(http.MethodGet, "/", "", "caller@example.com", nil))
		if rec.Code != http.StatusOK || apps.email != "caller@example.com" {
			t.Fatalf("%s: status %d, email %q", name, rec.Code, apps.email)
		}
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Fatalf("%s: body = %q", name, rec.Body.String())
		}
	}
}

func TestApplicationHandler_SetStatus(t *testing.T) {
	apps := &fakeApplications{err: fmt.Errorf("%w: application belongs to another student's tuition", services.ErrForbidden)}
	h := NewApplicationHandler(apps)
	params := map[string]string{"id": "a1"}

	rec := serve(h.SetStatus, request(http.MethodPatch, "/application/status/a1", `{"status":"accepted"}`, "student@example.com", params))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	if apps.id != "a1" || apps.email != "student@example.com" || apps.status != models.ApplicationAccepted {
		t.Fatalf("args %q %q %q", apps.id, apps.email, apps.status)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(fakePinger{})
	if rec := serve(h.Health, request(http.MethodGet, "/healthz", "", "", nil)); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthy: %d %q", rec.Code, rec.Body.String())
	}
	h = NewHealthHandler(fakePinger{err: errors.New("no primary")})
	if rec := serve(h.Health, request(http.MethodGet, "/healthz", "", "", nil)); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy status = %d", rec.Code)
	}
}
