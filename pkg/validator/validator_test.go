package validator

import (
	"testing"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=2"`
	Role  string `json:"role" validate:"omitempty,oneof=CUSTOMER SERVICE_PROVIDER"`
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Validate(&sampleRequest{Name: "Jo"})
	require.Error(t, err)
	assert.Equal(t, "email is required", err.Error())

	err = v.Validate(&sampleRequest{Email: "not-an-email", Name: "Jo"})
	require.Error(t, err)
	assert.Equal(t, "email must be a valid email", err.Error())

	err = v.Validate(&sampleRequest{Email: "jo@example.com", Name: "J"})
	require.Error(t, err)
	assert.Equal(t, "name must be at least 2 characters", err.Error())

	err = v.Validate(&sampleRequest{Email: "jo@example.com", Name: "Jo", Role: "ADMIN"})
	require.Error(t, err)
	assert.Equal(t, "role must be one of: CUSTOMER SERVICE_PROVIDER", err.Error())

	assert.NoError(t, v.Validate(&sampleRequest{Email: "jo@example.com", Name: "Jo"}))
}

func TestMessage(t *testing.T) {
	v := govalidator.New()
	RegisterTagNames(v)

	err := v.Struct(&sampleRequest{Name: "Jo"})
	require.Error(t, err)
	assert.Equal(t, "email is required", Message(err))

	assert.Equal(t, assert.AnError.Error(), Message(assert.AnError))
}
