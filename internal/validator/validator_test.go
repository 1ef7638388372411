package validator

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rule struct {
	Field    string `json:"field" validate:"required,dotpath"`
	Operator string `json:"operator" validate:"required,oneof=> < >= <= == != contains"`
}

type request struct {
	Request string `json:"request" validate:"required,notblank,max=20"`
	Rules   []rule `json:"rules" validate:"dive"`
}

func TestValidate_Valid(t *testing.T) {
	err := Validate(request{
		Request: "find a bottle",
		Rules:   []rule{{Field: "metrics.views", Operator: ">="}, {Field: "title", Operator: "contains"}},
	})
	assert.NoError(t, err)
}

func TestValidate_Errors(t *testing.T) {
	err := Validate(request{
		Request: strings.Repeat("x", 21),
		Rules:   []rule{{Field: "a..b", Operator: "~="}},
	})
	require.Error(t, err)
	errs, ok := AsValidationErrors(fmt.Errorf("create: %w", err))
	require.True(t, ok)
	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Message
	}
	assert.Equal(t, "must be at most 20 characters", fields["request"])
	assert.Equal(t, "must be a dot-separated field path", fields["rules[0].field"])
	assert.Contains(t, fields["rules[0].operator"], "must be one of")
}

func TestValidate_Blank(t *testing.T) {
	err := Validate(request{Request: "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request: must not be blank")
}
