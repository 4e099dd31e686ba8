package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/link-shortener/internal/service"
	"github.com/vadimbarashkov/link-shortener/pkg/response"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// decodeRequest decodes and validates the JSON body into req. On failure it
// writes the error response and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, validate *validator.Validate, req any) bool {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.EmptyRequestBodyResponse)
			return false
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.BadRequestResponse)
		return false
	}

	if err := validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationErrorResponse(err))
		return false
	}

	return true
}

// renderError maps a service error to its response. Unexpected errors are
// attached to the request log entry.
func renderError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrLinkNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ResourceNotFoundResponse)
	case errors.Is(err, service.ErrNotFoundOrUnauthorized):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.NotFoundOrUnauthorizedResponse)
	case errors.Is(err, service.ErrShortCodeTaken):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.ErrorResponse("The short code is already taken."))
	case errors.Is(err, service.ErrUsernameTaken):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.ErrorResponse("The username is already registered."))
	case errors.Is(err, service.ErrPasswordTooLong):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorResponse("The password must not exceed 72 bytes."))
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.UnauthorizedResponse)
	default:
		httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
	}
}

func handleShortenLink(svc LinkService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShortenLink"
	const successMsg = "The link has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest
		if !decodeRequest(w, r, validate, &req) {
			return
		}

		link, err := svc.Create(r.Context(), req.toLinkCreate(), userFromContext(r.Context()))
		if err != nil {
			renderError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(link)))
	}
}

func handleResolveLink(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleResolveLink"
	const successMsg = "The short code was successfully resolved."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		link, err := svc.Resolve(r.Context(), shortCode)
		if err != nil {
			renderError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(link)))
	}
}

func handleRedirect(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		link, err := svc.Resolve(r.Context(), shortCode)
		if err != nil {
			renderError(w, r, op, err)
			return
		}

		http.Redirect(w, r, link.OriginalURL, http.StatusTemporaryRedirect)
	}
}

func handleUpdateLink(svc LinkService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleUpdateLink"
	const successMsg = "The link was successfully updated."

	return func(w http.ResponseWriter, r *http.Request) {
		var req updateRequest
		if !decodeRequest(w, r, validate, &req) {
			return
		}

		shortCode := chi.URLParam(r, "shortCode")

		link, err := svc.Update(r.Context(), shortCode, userFromContext(r.Context()), req.toLinkUpdate())
		if err != nil {
			renderError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(link)))
	}
}

func handleDeleteLink(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleDeleteLink"
	const successMsg = "The link was successfully deleted."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		if err := svc.Delete(r.Context(), shortCode, userFromContext(r.Context())); err != nil {
			renderError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

func handleLinkStats(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleLinkStats"
	const successMsg = "The link statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		stats, err := svc.Stats(r.Context(), shortCode)
		if err != nil {
			renderError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toStatsResponse(stats)))
	}
}

func handleSearchLink(svc LinkService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleSearchLink"
	const successMsg = "The link was found."

	return func(w http.ResponseWriter, r *http.Request) {
		originalURL := r.URL.Query().Get("original_url")

		if err := validate.Var(originalURL, "required,url,max=2048"); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		link, err := svc.SearchByURL(r.Context(), originalURL, userFromContext(r.Context()))
		if err != nil {
			renderError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(link)))
	}
}

func handleExpiredLinks(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleExpiredLinks"
	const successMsg = "The expired links retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		links, err := svc.ExpiredLinks(r.Context(), userFromContext(r.Context()))
		if err != nil {
			renderError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponses(links)))
	}
}

func handleProjectLinks(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleProjectLinks"
	const successMsg = "The project links retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		project := chi.URLParam(r, "project")

		links, err := svc.LinksByProject(r.Context(), project, userFromContext(r.Context()))
		if err != nil {
			renderError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponses(links)))
	}
}
