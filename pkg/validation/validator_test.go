package validation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seedInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwd"`
	Role     string `json:"role" validate:"omitempty,role"`
}

func TestToDetails_ValidationErrors(t *testing.T) {
	v := New()
	err := v.Struct(seedInput{Email: "nope", Password: "short", Role: "admin"})
	require.Error(t, err)

	d := ToDetails(err)
	assert.Equal(t, "must be a valid email", d["email"])
	assert.Equal(t, "must be at least 8 characters long", d["password"])
	assert.Equal(t, "must be one of: startup, sme, enterprise", d["role"])
}

func TestRoleAlias_AllowsEmpty(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(seedInput{Email: "a@example.com", Password: "password123"}))
	assert.NoError(t, v.Struct(seedInput{Email: "a@example.com", Password: "password123", Role: "sme"}))
}

func TestToDetails_Payload(t *testing.T) {
	var x map[string]any
	err := json.Unmarshal([]byte("{"), &x)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))
	assert.Equal(t, map[string]string{"payload": "invalid payload"}, ToDetails(errors.New("x")))
	assert.Nil(t, ToDetails(nil))
}
