// Package http exposes the link service over a JSON HTTP API.
package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/link-shortener/docs"
	"github.com/vadimbarashkov/link-shortener/internal/models"
)

type LinkService interface {
	Create(ctx context.Context, params models.LinkCreate, owner *models.User) (*models.Link, error)
	Resolve(ctx context.Context, shortCode string) (*models.Link, error)
	Update(ctx context.Context, shortCode string, owner *models.User, upd models.LinkUpdate) (*models.Link, error)
	Delete(ctx context.Context, shortCode string, owner *models.User) error
	Stats(ctx context.Context, shortCode string) (*models.LinkStats, error)
	SearchByURL(ctx context.Context, originalURL string, owner *models.User) (*models.Link, error)
	ExpiredLinks(ctx context.Context, owner *models.User) ([]*models.Link, error)
	LinksByProject(ctx context.Context, project string, owner *models.User) ([]*models.Link, error)
}

type AuthService interface {
	Register(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	ParseToken(token string) (*models.User, error)
}

func NewRouter(logger *httplog.Logger, linkSvc LinkService, authSvc AuthService) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(docs.SwaggerYAML)
	})

	validate := getValidate()

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc, validate))
			r.Post("/login", handleLogin(authSvc, validate))
		})

		r.Route("/links", func(r chi.Router) {
			r.Use(authenticate(authSvc))

			r.Post("/shorten", handleShortenLink(linkSvc, validate))
			r.Get("/search", handleSearchLink(linkSvc, validate))
			r.With(requireUser).Get("/expired", handleExpiredLinks(linkSvc))
			r.With(requireUser).Get("/projects/{project}", handleProjectLinks(linkSvc))

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Get("/", handleResolveLink(linkSvc))
				r.Put("/", handleUpdateLink(linkSvc, validate))
				r.Delete("/", handleDeleteLink(linkSvc))
				r.Get("/stats", handleLinkStats(linkSvc))
			})
		})
	})

	r.Get("/{shortCode}", handleRedirect(linkSvc))

	return r
}

func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}
