package response

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var (
	EmptyRequestBodyResponse = Response{
		Status:  StatusError,
		Message: "Request body is empty. Please provide necessary data.",
	}

	BadRequestResponse = Response{
		Status:  StatusError,
		Message: "The request could not be understood. Please check the request body.",
	}

	UnauthorizedResponse = Response{
		Status:  StatusError,
		Message: "Authentication failed. Please provide valid credentials.",
	}

	ResourceNotFoundResponse = Response{
		Status:  StatusError,
		Message: "The requested resource was not found.",
	}

	NotFoundOrUnauthorizedResponse = Response{
		Status:  StatusError,
		Message: "The requested resource was not found or you are not allowed to modify it.",
	}

	ServerErrorResponse = Response{
		Status:  StatusError,
		Message: "An internal server error occurred. Please try again later.",
	}
)

// ErrorResponse builds an error response with a custom message.
func ErrorResponse(msg string) Response {
	return Response{
		Status:  StatusError,
		Message: msg,
	}
}

func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 && data[0] != nil {
		resp.Data = data[0]
	}

	return resp
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

func issueForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "url":
		return "Invalid url."
	case "alphanum":
		return "Only letters and digits are allowed."
	case "min":
		return "The value is too short, minimum is " + fe.Param() + "."
	case "max":
		return "The value is too long, maximum is " + fe.Param() + "."
	default:
		return "Invalid value."
	}
}

func getValidationErrors(err error) []validationError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}

	validationErrs := make([]validationError, 0, len(errs))
	for _, fe := range errs {
		validationErrs = append(validationErrs, validationError{
			Field: fe.Field(),
			Value: fe.Value(),
			Issue: issueForTag(fe),
		})
	}

	return validationErrs
}

func ValidationErrorResponse(err error) Response {
	return Response{
		Status:  StatusError,
		Message: "The request contains invalid fields.",
		Details: getValidationErrors(err),
	}
}
