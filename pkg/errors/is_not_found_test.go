package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/turtacn/Massing-Sim/pkg/errors"
)

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			"Generic NotFound",
			errors.NotFound("not found"),
			true,
		},
		{
			"Run NotFound",
			errors.New(errors.ErrCodeRunNotFound, "run not found"),
			true,
		},
		{
			"Definition NotFound",
			errors.New(errors.ErrCodeDefinitionNotFound, "definition not found"),
			true,
		},
		{
			"Unknown definition",
			errors.New(errors.ErrCodeUnknownDefinition, "unknown definition"),
			true,
		},
		{
			"Internal Error",
			errors.Internal("internal error"),
			false,
		},
		{
			"Wrapped NotFound",
			errors.Wrap(errors.NotFound("not found"), errors.CodeInternal, "wrapped"),
			true,
		},
		{
			"Plain error",
			fmt.Errorf("plain error"),
			false,
		},
		{
			"Nil error",
			nil,
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, errors.IsNotFound(tc.err))
		})
	}
}
//Personal.AI order the ending
