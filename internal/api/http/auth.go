package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/link-shortener/internal/models"
	"github.com/vadimbarashkov/link-shortener/pkg/response"
)

type ctxKey struct{}

var userCtxKey = ctxKey{}

// userFromContext returns the authenticated user, or nil for anonymous requests.
func userFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userCtxKey).(*models.User)
	return user
}

// authenticate resolves the bearer token into a user. Requests without an
// Authorization header pass through anonymously.
func authenticate(svc AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.UnauthorizedResponse)
				return
			}

			user, err := svc.ParseToken(token)
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.UnauthorizedResponse)
				return
			}

			ctx := context.WithValue(r.Context(), userCtxKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

// requireUser rejects anonymous requests. It must run after authenticate.
func requireUser(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		if userFromContext(r.Context()) == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.UnauthorizedResponse)
			return
		}

		next.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}

func handleRegister(svc AuthService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleRegister"
	const successMsg = "The user has been registered successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if !decodeRequest(w, r, validate, &req) {
			return
		}

		token, err := svc.Register(r.Context(), req.Username, req.Password)
		if err != nil {
			renderError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toTokenResponse(token)))
	}
}

func handleLogin(svc AuthService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleLogin"
	const successMsg = "The user has been logged in successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if !decodeRequest(w, r, validate, &req) {
			return
		}

		token, err := svc.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			renderError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toTokenResponse(token)))
	}
}
