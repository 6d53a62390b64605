package api

import (
	"github.com/etuitionbd/etuition-be/internal/api/handlers"
	"github.com/etuitionbd/etuition-be/internal/auth"
	"github.com/etuitionbd/etuition-be/internal/metrics"
	"github.com/etuitionbd/etuition-be/internal/models"
	"github.com/etuitionbd/etuition-be/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	AllowedOrigins []string
	Verifier       auth.TokenVerifier
	Users          services.UserServiceProvider
	Tuitions       services.TuitionServiceProvider
	Applications   services.ApplicationServiceProvider
	DB             handlers.Pinger
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	gate := auth.NewGate(d.Verifier, d.Users, handlers.WriteError)
	verified := gate.Verified()
	student := gate.Role(models.RoleStudent)
	tutor := gate.Role(models.RoleTutor)
	admin := gate.Role(models.RoleAdmin)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(d.DB)
	userHandler := handlers.NewUserHandler(d.Users)
	tuitionHandler := handlers.NewTuitionHandler(d.Tuitions)
	applicationHandler := handlers.NewApplicationHandler(d.Applications)

	r.Get("/", healthHandler.Root)
	r.Get("/healthz", healthHandler.Health)
	r.Handle("/metrics", metrics.Handler())

	// Public
	r.Post("/user", userHandler.Save)
	r.Get("/tutors", userHandler.ListTutors)
	r.Get("/home/tutors", userHandler.HomeTutors)
	r.Get("/tuitions", tuitionHandler.List)
	r.Get("/home/tuitions", tuitionHandler.Home)
	r.Get("/tuition/{id}", tuitionHandler.Get)

	// Any signed-in user
	r.With(verified).Get("/user/role", userHandler.GetRole)
	r.With(verified).Patch("/users/{email}", userHandler.UpdateProfile)
	r.With(verified).Get("/application/check/{tuitionId}/{email}", applicationHandler.Check)

	// Students
	r.With(student).Post("/tuitions", tuitionHandler.Create)
	r.With(student).Get("/my-tuitions", tuitionHandler.Mine)
	r.With(student).Delete("/tuition/{id}", tuitionHandler.Delete)
	r.With(student).Patch("/tuition/{id}", tuitionHandler.Update)
	r.With(student).Get("/applications/received", applicationHandler.Received)
	r.With(student).Patch("/application/status/{id}", applicationHandler.SetStatus)

	// Tutors
	r.With(tutor).Get("/tutor/applications", applicationHandler.Mine)
	r.With(tutor).Get("/tutor/ongoing-tuitions", applicationHandler.Ongoing)
	r.With(tutor).Post("/applications", applicationHandler.Apply)

	// Admins
	r.With(admin).Get("/users", userHandler.ListAll)
	r.With(admin).Patch("/users/role/{id}", userHandler.SetRole)
	r.With(admin).Get("/tuitions/all", tuitionHandler.All)
	r.With(admin).Patch("/tuition/status/{id}", tuitionHandler.SetStatus)

	return r
}
