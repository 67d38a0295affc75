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

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeNotImplemented     ErrorCode = "COMMON_008"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_009"
)

// Molecule module error codes.
const (
	ErrCodeMoleculeInvalidSMILES     ErrorCode = "MOL_001"
	ErrCodeMoleculeInvalidFormat     ErrorCode = "MOL_002"
	ErrCodeMoleculeParseFailed       ErrorCode = "MOL_003"
	ErrCodeMoleculeNotFound          ErrorCode = "MOL_004"
	ErrCodeMoleculeEmpty             ErrorCode = "MOL_005"
	ErrCodeAtomIndexOutOfRange       ErrorCode = "MOL_006"
	ErrCodeMoleculeCatalogUnreadable ErrorCode = "MOL_007"
)

// Viewer module error codes.
const (
	ErrCodeEngineUnavailable   ErrorCode = "VWR_001"
	ErrCodeEngineNotRegistered ErrorCode = "VWR_002"
	ErrCodeMountDetached       ErrorCode = "VWR_003"
	ErrCodeViewerNotReady      ErrorCode = "VWR_004"
	ErrCodeViewerTornDown      ErrorCode = "VWR_005"
	ErrCodeSessionNotFound     ErrorCode = "VWR_006"
	ErrCodeSnapshotUnsupported ErrorCode = "VWR_007"
	ErrCodeAtomNotFound        ErrorCode = "VWR_008"
	ErrCodeSessionLimit        ErrorCode = "VWR_009"
)

// Aliases kept short for the most frequent call sites.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")

	// Domain-specific aliases
	CodeInvalidSMILES       = ErrCodeMoleculeInvalidSMILES
	CodeUnsupportedFormat   = ErrCodeMoleculeInvalidFormat
	CodeMoleculeParse       = ErrCodeMoleculeParseFailed
	CodeMoleculeNotFound    = ErrCodeMoleculeNotFound
	CodeMoleculeEmpty       = ErrCodeMoleculeEmpty
	CodeAtomIndexOutOfRange = ErrCodeAtomIndexOutOfRange
	CodeCatalogUnreadable   = ErrCodeMoleculeCatalogUnreadable
	CodeEngineUnavailable   = ErrCodeEngineUnavailable
	CodeEngineNotRegistered = ErrCodeEngineNotRegistered
	CodeMountDetached       = ErrCodeMountDetached
	CodeViewerNotReady      = ErrCodeViewerNotReady
	CodeViewerTornDown      = ErrCodeViewerTornDown
	CodeSessionNotFound     = ErrCodeSessionNotFound
	CodeSnapshotUnsupported = ErrCodeSnapshotUnsupported
	CodeAtomNotFound        = ErrCodeAtomNotFound
	CodeSessionLimit        = ErrCodeSessionLimit
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	ErrCodeMoleculeInvalidSMILES:     http.StatusBadRequest,
	ErrCodeMoleculeInvalidFormat:     http.StatusBadRequest,
	ErrCodeMoleculeParseFailed:       http.StatusUnprocessableEntity,
	ErrCodeMoleculeNotFound:          http.StatusNotFound,
	ErrCodeMoleculeEmpty:             http.StatusBadRequest,
	ErrCodeAtomIndexOutOfRange:       http.StatusNotFound,
	ErrCodeMoleculeCatalogUnreadable: http.StatusInternalServerError,

	ErrCodeEngineUnavailable:   http.StatusBadGateway,
	ErrCodeEngineNotRegistered: http.StatusBadRequest,
	ErrCodeMountDetached:       http.StatusConflict,
	ErrCodeViewerNotReady:      http.StatusConflict,
	ErrCodeViewerTornDown:      http.StatusGone,
	ErrCodeSessionNotFound:     http.StatusNotFound,
	ErrCodeSnapshotUnsupported: http.StatusNotImplemented,
	ErrCodeAtomNotFound:        http.StatusNotFound,
	ErrCodeSessionLimit:        http.StatusTooManyRequests,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeNotImplemented:     "not implemented",
	ErrCodeServiceUnavailable: "service unavailable",

	ErrCodeMoleculeInvalidSMILES:     "invalid SMILES string",
	ErrCodeMoleculeInvalidFormat:     "unsupported molecule file format",
	ErrCodeMoleculeParseFailed:       "failed to parse molecule file",
	ErrCodeMoleculeNotFound:          "molecule not found",
	ErrCodeMoleculeEmpty:             "molecule contains no atoms",
	ErrCodeAtomIndexOutOfRange:       "atom index out of range",
	ErrCodeMoleculeCatalogUnreadable: "molecule catalog unreadable",

	ErrCodeEngineUnavailable:   "rendering engine unavailable",
	ErrCodeEngineNotRegistered: "rendering engine not registered",
	ErrCodeMountDetached:       "mount surface detached",
	ErrCodeViewerNotReady:      "viewer not ready",
	ErrCodeViewerTornDown:      "viewer session torn down",
	ErrCodeSessionNotFound:     "viewer session not found",
	ErrCodeSnapshotUnsupported: "engine does not support frame snapshots",
	ErrCodeAtomNotFound:        "atom not found in current structure",
	ErrCodeSessionLimit:        "viewer session limit reached",
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

// ModuleForCode returns the module prefix of an ErrorCode, e.g. "VWR" for
// ErrCodeViewerNotReady.  Used as a metric label by the HTTP middleware.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
