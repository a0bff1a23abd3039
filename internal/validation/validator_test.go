package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	b := domain.Bookmark{
		Title: "Go blog",
		URI:   "https://go.dev/blog",
	}

	assert.NoError(t, v.Validate(b))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		bookmark  domain.Bookmark
		wantField string
	}{
		{
			name:      "missing title",
			bookmark:  domain.Bookmark{URI: "https://example.com"},
			wantField: "title",
		},
		{
			name: "title too long",
			bookmark: domain.Bookmark{
				Title: strings.Repeat("x", domain.MaxTitleLength+1),
				URI:   "https://example.com",
			},
			wantField: "title",
		},
		{
			name:      "missing uri",
			bookmark:  domain.Bookmark{Title: "No link"},
			wantField: "uri",
		},
		{
			name: "uri too long",
			bookmark: domain.Bookmark{
				Title: "Long",
				URI:   "https://example.com/" + strings.Repeat("x", domain.MaxURILength),
			},
			wantField: "uri",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.bookmark)
			require.Error(t, err)
			assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

			fields := v.FieldErrors(tt.bookmark)
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

// Field names in errors come from the json tags, not the Go field names.
func TestValidator_FieldErrorsUseJSONNames(t *testing.T) {
	v := validation.New()

	fields := v.FieldErrors(domain.Bookmark{})
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "uri")
	assert.NotContains(t, fields, "Title")
}
