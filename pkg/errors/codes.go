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
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_005"
	ErrCodeTimeout            ErrorCode = "COMMON_006"
	ErrCodeValidation         ErrorCode = "COMMON_007"
	ErrCodeSerialization      ErrorCode = "COMMON_008"
	ErrCodeDatabaseError      ErrorCode = "COMMON_009"
	ErrCodeCacheError         ErrorCode = "COMMON_010"
	ErrCodeExternalService    ErrorCode = "COMMON_011"
)

// Listing Module Error Codes
const (
	ErrCodeListingInvalid       ErrorCode = "LST_001"
	ErrCodeListingNotFound      ErrorCode = "LST_002"
	ErrCodeListingAlreadyExists ErrorCode = "LST_003"
	ErrCodeListingImportFailed  ErrorCode = "LST_004"
)

// Similarity Index Error Codes
const (
	ErrCodeEmbeddingInvalid ErrorCode = "IDX_001"
	ErrCodeIndexUnavailable ErrorCode = "IDX_002"
	ErrCodeIndexQueryFailed ErrorCode = "IDX_003"
)

// Embedding Adapter Error Codes
const (
	ErrCodeEmbeddingUnavailable ErrorCode = "EMB_001"
	ErrCodeEmbeddingFailed      ErrorCode = "EMB_002"
)

// Risk Engine Error Codes
const (
	ErrCodeSignalExtractionFailed ErrorCode = "ENG_001"
	ErrCodeAnalysisFailed         ErrorCode = "ENG_002"
	ErrCodeExplanationFailed      ErrorCode = "ENG_003"
)

// Aliases used at call sites for readability.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusInternalServerError,

	ErrCodeListingInvalid:       http.StatusBadRequest,
	ErrCodeListingNotFound:      http.StatusNotFound,
	ErrCodeListingAlreadyExists: http.StatusConflict,
	ErrCodeListingImportFailed:  http.StatusInternalServerError,

	ErrCodeEmbeddingInvalid: http.StatusBadRequest,
	ErrCodeIndexUnavailable: http.StatusServiceUnavailable,
	ErrCodeIndexQueryFailed: http.StatusInternalServerError,

	ErrCodeEmbeddingUnavailable: http.StatusServiceUnavailable,
	ErrCodeEmbeddingFailed:      http.StatusInternalServerError,

	ErrCodeSignalExtractionFailed: http.StatusInternalServerError,
	ErrCodeAnalysisFailed:         http.StatusInternalServerError,
	ErrCodeExplanationFailed:      http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",

	ErrCodeListingInvalid:       "invalid listing",
	ErrCodeListingNotFound:      "listing not found",
	ErrCodeListingAlreadyExists: "listing already exists",
	ErrCodeListingImportFailed:  "listing import failed",

	ErrCodeEmbeddingInvalid: "invalid embedding vector",
	ErrCodeIndexUnavailable: "similarity index unavailable",
	ErrCodeIndexQueryFailed: "similarity query failed",

	ErrCodeEmbeddingUnavailable: "embedding provider unavailable",
	ErrCodeEmbeddingFailed:      "embedding generation failed",

	ErrCodeSignalExtractionFailed: "signal extraction failed",
	ErrCodeAnalysisFailed:         "risk analysis failed",
	ErrCodeExplanationFailed:      "explanation generation failed",
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
