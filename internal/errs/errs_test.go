package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := New(CodeIllegalConfiguration, "bad %s", "cwd")
	assert.Equal(t, "ILLEGAL_CONFIGURATION: bad cwd", err.Error())

	wrapped := Wrap(CodeNotReadable, errors.New("permission denied"), "read %s", "a.ts")
	assert.Equal(t, "NOT_READABLE: read a.ts: permission denied", wrapped.Error())
}

func TestIs(t *testing.T) {
	base := New(CodeParseError, "syntax")
	outer := fmt.Errorf("walk b.ts: %w", base)

	assert.True(t, Is(outer, CodeParseError))
	assert.False(t, Is(outer, CodeNotReadable))
	assert.False(t, Is(errors.New("plain"), CodeParseError))
	assert.False(t, Is(nil, CodeParseError))

	nested := Wrap(CodeBuildFailure, base, "entrypoint")
	assert.True(t, Is(nested, CodeBuildFailure))
	assert.True(t, Is(nested, CodeParseError), "inner codes are reachable through Cause")
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOutOfScope, GetCode(fmt.Errorf("x: %w", New(CodeOutOfScope, "../a"))))
	assert.Equal(t, Code(""), GetCode(errors.New("plain")))
}

func TestRecoverable(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{CodeNotReadable, true},
		{CodeParseError, true},
		{CodeUnresolvedLocal, true},
		{CodeOutOfScope, true},
		{CodeDynamicSpecifier, true},
		{CodeIllegalConfiguration, false},
		{CodeBuildFailure, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, Recoverable(New(tt.code, "x")))
		})
	}
	assert.False(t, Recoverable(errors.New("plain")))
}
