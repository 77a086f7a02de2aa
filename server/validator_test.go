package server

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tagRequest struct {
	Tags []string `validate:"required,min=1,dive,cache_tag"`
}

func TestCacheTagRule(t *testing.T) {
	v := NewValidator()
	require.NotNil(t, v.GetValidator())

	tests := []struct {
		name  string
		tags  []string
		valid bool
	}{
		{name: "simple tags", tags: []string{"jobs", "job-list", "user:42"}, valid: true},
		{name: "missing", tags: nil},
		{name: "empty list", tags: []string{}},
		{name: "empty tag", tags: []string{"jobs", ""}},
		{name: "whitespace", tags: []string{"job list"}},
		{name: "tab", tags: []string{"jobs\t"}},
		{name: "star", tags: []string{"jobs*"}},
		{name: "question mark", tags: []string{"job?"}},
		{name: "brackets", tags: []string{"job[s]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tagRequest{Tags: tt.tags})
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			require.NotEmpty(t, ve.Errors)
			assert.Contains(t, ve.Error(), "validation failed")
		})
	}
}

func TestValidationErrorMessages(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&tagRequest{Tags: []string{"a b"}})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Tags[0] must be a non-empty tag without whitespace or glob characters", ve.Errors[0].Message)
	assert.Equal(t, "a b", ve.Errors[0].Value)

	err = v.Validate(&tagRequest{})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Tags is required", ve.Errors[0].Message)

	assert.Equal(t, "validation failed", (&ValidationError{}).Error())
	assert.Equal(t, "validation failed: 2 errors", (&ValidationError{Errors: make([]FieldError, 2)}).Error())
}

func TestValidateNonStruct(t *testing.T) {
	err := NewValidator().Validate("not a struct")
	require.Error(t, err)
	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
}
