package response

import (
	"reflect"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type shortenFixture struct {
	OriginalURL string `json:"original_url" validate:"required,url"`
	CustomAlias string `json:"custom_alias,omitempty" validate:"omitempty,alphanum,min=3,max=10"`
	Project     string `json:"project,omitempty" validate:"omitempty,lowercase"`
}

func newValidate() *validator.Validate {
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

func TestSuccessResponse(t *testing.T) {
	link := map[string]any{"short_code": "abc123"}

	tests := []struct {
		name string
		data []any
		want any
	}{
		{name: "no data", data: nil, want: nil},
		{name: "nil data is dropped", data: []any{nil}, want: nil},
		{name: "single value", data: []any{link}, want: link},
		{name: "only the first value is kept", data: []any{link, map[string]any{"short_code": "def456"}}, want: link},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuccessResponse("The link has been shortened successfully.", tt.data...)

			assert.Equal(t, Response{
				Status:  StatusSuccess,
				Message: "The link has been shortened successfully.",
				Data:    tt.want,
			}, got)
		})
	}
}

func TestErrorResponse(t *testing.T) {
	got := ErrorResponse("The short code is already taken.")

	assert.Equal(t, Response{
		Status:  StatusError,
		Message: "The short code is already taken.",
	}, got)
}

func TestGetValidationErrors(t *testing.T) {
	validate := newValidate()

	tests := []struct {
		name string
		req  shortenFixture
		want []validationError
	}{
		{
			name: "valid request",
			req:  shortenFixture{OriginalURL: "https://example.com", CustomAlias: "mine"},
		},
		{
			name: "missing url",
			req:  shortenFixture{},
			want: []validationError{
				{Field: "original_url", Value: "", Issue: "This field is required."},
			},
		},
		{
			name: "malformed url",
			req:  shortenFixture{OriginalURL: "not url"},
			want: []validationError{
				{Field: "original_url", Value: "not url", Issue: "Invalid url."},
			},
		},
		{
			name: "alias with symbols",
			req:  shortenFixture{OriginalURL: "https://example.com", CustomAlias: "my-link"},
			want: []validationError{
				{Field: "custom_alias", Value: "my-link", Issue: "Only letters and digits are allowed."},
			},
		},
		{
			name: "alias too short",
			req:  shortenFixture{OriginalURL: "https://example.com", CustomAlias: "ab"},
			want: []validationError{
				{Field: "custom_alias", Value: "ab", Issue: "The value is too short, minimum is 3."},
			},
		},
		{
			name: "alias too long",
			req:  shortenFixture{OriginalURL: "https://example.com", CustomAlias: "abcdefghijk"},
			want: []validationError{
				{Field: "custom_alias", Value: "abcdefghijk", Issue: "The value is too long, maximum is 10."},
			},
		},
		{
			name: "unmapped tag",
			req:  shortenFixture{OriginalURL: "https://example.com", Project: "Blog"},
			want: []validationError{
				{Field: "project", Value: "Blog", Issue: "Invalid value."},
			},
		},
		{
			name: "several fields",
			req:  shortenFixture{OriginalURL: "ftp//x", CustomAlias: "a!"},
			want: []validationError{
				{Field: "original_url", Value: "ftp//x", Issue: "Invalid url."},
				{Field: "custom_alias", Value: "a!", Issue: "Only letters and digits are allowed."},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.req)
			got := getValidationErrors(err)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidationErrorResponse(t *testing.T) {
	validate := newValidate()

	t.Run("validation errors become details", func(t *testing.T) {
		err := validate.Struct(shortenFixture{CustomAlias: "ab"})

		got := ValidationErrorResponse(err)

		assert.Equal(t, StatusError, got.Status)
		assert.Equal(t, "The request contains invalid fields.", got.Message)
		assert.Equal(t, []validationError{
			{Field: "original_url", Value: "", Issue: "This field is required."},
			{Field: "custom_alias", Value: "ab", Issue: "The value is too short, minimum is 3."},
		}, got.Details)
	})

	t.Run("other errors have no details", func(t *testing.T) {
		got := ValidationErrorResponse(assert.AnError)

		assert.Equal(t, StatusError, got.Status)
		assert.Nil(t, got.Details)
	})
}
