package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "COMMON_001", ErrCodeInternal.String())
}

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeInternal, 500},
		{ErrCodeBadRequest, 400},
		{ErrCodeNotFound, 404},
		{ErrCodeConflict, 409},
		{ErrCodeValidation, 422},
		{ErrorCode("UNKNOWN"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatusForCode(tt.code))
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "internal server error", DefaultMessageForCode(ErrCodeInternal))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("UNKNOWN")))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeBadRequest))
	assert.False(t, IsClientError(ErrCodeInternal))
}

func TestIsServerError(t *testing.T) {
	assert.True(t, IsServerError(ErrCodeInternal))
	assert.False(t, IsServerError(ErrCodeBadRequest))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
	assert.Equal(t, "CMP", ModuleForCode(ErrCodeComputeUnavailable))
	assert.Equal(t, "SIM", ModuleForCode(ErrCodeRunNotFound))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("")))
}

func allCodes() []ErrorCode {
	codes := make([]ErrorCode, 0, len(ErrorCodeHTTPStatus))
	for c := range ErrorCodeHTTPStatus {
		codes = append(codes, c)
	}
	return codes
}

func TestErrorCodeFormat_Convention(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	for _, code := range allCodes() {
		assert.Regexp(t, re, string(code))
	}
}

func TestErrorCodeMappings_Completeness(t *testing.T) {
	for _, code := range allCodes() {
		_, hasMessage := ErrorCodeMessage[code]
		assert.True(t, hasMessage, "missing message for %s", code)
	}
	assert.Len(t, ErrorCodeMessage, len(ErrorCodeHTTPStatus))
}

func TestGatewayStatuses(t *testing.T) {
	assert.Equal(t, 503, HTTPStatusForCode(ErrCodeComputeUnavailable))
	assert.Equal(t, 502, HTTPStatusForCode(ErrCodeEvaluationFailed))
	assert.Equal(t, 404, HTTPStatusForCode(ErrCodeRunNotFound))
	assert.True(t, IsClientError(ErrCodeUnknownSimulationKind))
	assert.Equal(t, "simulation finished but no output image was produced", DefaultMessageForCode(ErrCodeArtifactMissing))
}

//Personal.AI order the ending
