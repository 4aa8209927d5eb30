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
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Aliases used at call sites.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Matching Module Error Codes
const (
	ErrCodeDictionaryEmpty      ErrorCode = "MATCH_001"
	ErrCodeMatcherConfigInvalid ErrorCode = "MATCH_002"
	ErrCodeQueryInvalid         ErrorCode = "MATCH_003"
	ErrCodeSnapshotNotLoaded    ErrorCode = "MATCH_004"
)

// Catalog Source Error Codes
const (
	ErrCodeCatalogUnavailable  ErrorCode = "SRC_001"
	ErrCodeSynonymsUnavailable ErrorCode = "SRC_002"
	ErrCodeSourceMalformed     ErrorCode = "SRC_003"
	ErrCodeSourceUnsupported   ErrorCode = "SRC_004"
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
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeDictionaryEmpty:      http.StatusServiceUnavailable,
	ErrCodeMatcherConfigInvalid: http.StatusInternalServerError,
	ErrCodeQueryInvalid:         http.StatusBadRequest,
	ErrCodeSnapshotNotLoaded:    http.StatusServiceUnavailable,

	ErrCodeCatalogUnavailable:  http.StatusServiceUnavailable,
	ErrCodeSynonymsUnavailable: http.StatusServiceUnavailable,
	ErrCodeSourceMalformed:     http.StatusUnprocessableEntity,
	ErrCodeSourceUnsupported:   http.StatusBadRequest,
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
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeDictionaryEmpty:      "synonym dictionary is empty",
	ErrCodeMatcherConfigInvalid: "invalid matcher configuration",
	ErrCodeQueryInvalid:         "invalid search query",
	ErrCodeSnapshotNotLoaded:    "catalog snapshot not loaded",

	ErrCodeCatalogUnavailable:  "catalog source unavailable",
	ErrCodeSynonymsUnavailable: "synonym source unavailable",
	ErrCodeSourceMalformed:     "malformed source data",
	ErrCodeSourceUnsupported:   "unsupported catalog source",
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
