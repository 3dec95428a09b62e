package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
	ErrCodeStorageError       ErrorCode = "COMMON_017"
	ErrCodeMessagingError     ErrorCode = "COMMON_018"
)

// Compute Module Error Codes
const (
	ErrCodeComputeUnavailable     ErrorCode = "CMP_001"
	ErrCodeEvaluationFailed       ErrorCode = "CMP_002"
	ErrCodeDefinitionNotFound     ErrorCode = "CMP_003"
	ErrCodeInvalidComputeResponse ErrorCode = "CMP_004"
	ErrCodeParamEncodingFailed    ErrorCode = "CMP_005"
	ErrCodeUnknownDefinition      ErrorCode = "CMP_006"
)

// Simulation Module Error Codes
const (
	ErrCodeUnknownSimulationKind ErrorCode = "SIM_001"
	ErrCodeRunNotFound           ErrorCode = "SIM_002"
	ErrCodeRunAlreadyClaimed     ErrorCode = "SIM_003"
	ErrCodeArtifactMissing       ErrorCode = "SIM_004"
	ErrCodeGuardFailed           ErrorCode = "SIM_005"
	ErrCodeAsyncDisabled         ErrorCode = "SIM_006"
)

// Short aliases used across the codebase.
const (
	CodeUnknown        = ErrorCode("")
	CodeOK             = ErrorCode("OK")
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented

	CodeDatabaseError     = ErrCodeDatabaseError
	CodeDBConnectionError = ErrCodeDatabaseError
	CodeDBQueryError      = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeStorageError      = ErrCodeStorageError
	CodeMessageQueueError = ErrCodeMessagingError

	CodeRunNotFound = ErrCodeRunNotFound
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,
	ErrCodeNotImplemented:     http.StatusNotImplemented,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,

	ErrCodeComputeUnavailable:     http.StatusServiceUnavailable,
	ErrCodeEvaluationFailed:       http.StatusBadGateway,
	ErrCodeDefinitionNotFound:     http.StatusNotFound,
	ErrCodeInvalidComputeResponse: http.StatusBadGateway,
	ErrCodeParamEncodingFailed:    http.StatusBadRequest,
	ErrCodeUnknownDefinition:      http.StatusNotFound,

	ErrCodeUnknownSimulationKind: http.StatusBadRequest,
	ErrCodeRunNotFound:           http.StatusNotFound,
	ErrCodeRunAlreadyClaimed:     http.StatusConflict,
	ErrCodeArtifactMissing:       http.StatusBadGateway,
	ErrCodeGuardFailed:           http.StatusUnprocessableEntity,
	ErrCodeAsyncDisabled:         http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodeNotImplemented:     "not implemented",
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessagingError:     "message queue error",

	ErrCodeComputeUnavailable:     "compute server unavailable",
	ErrCodeEvaluationFailed:       "definition evaluation failed",
	ErrCodeDefinitionNotFound:     "definition file not found",
	ErrCodeInvalidComputeResponse: "invalid compute response",
	ErrCodeParamEncodingFailed:    "parameters cannot be encoded as a data tree",
	ErrCodeUnknownDefinition:      "unknown definition",

	ErrCodeUnknownSimulationKind: "unknown simulation type",
	ErrCodeRunNotFound:           "simulation run not found",
	ErrCodeRunAlreadyClaimed:     "simulation run is already being processed",
	ErrCodeArtifactMissing:       "simulation finished but no output image was produced",
	ErrCodeGuardFailed:           "guard failed",
	ErrCodeAsyncDisabled:         "asynchronous simulation is disabled",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
