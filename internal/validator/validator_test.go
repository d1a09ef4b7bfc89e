package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordStrength(t *testing.T) {
	type input struct {
		Password string `validate:"password_strength"`
	}
	v := New()

	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{name: "ok", password: "Sup3rSecret", valid: true},
		{name: "too_short", password: "Ab1", valid: false},
		{name: "no_upper", password: "sup3rsecret", valid: false},
		{name: "no_lower", password: "SUP3RSECRET", valid: false},
		{name: "no_digit", password: "SuperSecret", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(input{Password: tt.password})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRequestStatus(t *testing.T) {
	type input struct {
		Status string `validate:"request_status"`
	}
	v := New()

	assert.NoError(t, v.Validate(input{Status: "approved"}))
	assert.Error(t, v.Validate(input{Status: "shredded"}))
}
