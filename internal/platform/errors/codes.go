// Package errors provides structured error handling for the sync engine.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Recording errors
	CodeInvalidRecording Code = "INVALID_RECORDING"

	// Local store errors
	CodeLocalStore Code = "LOCAL_STORE"
	CodeNotFound   Code = "NOT_FOUND"

	// Remote repository errors
	CodeRemoteTransport    Code = "REMOTE_TRANSPORT"
	CodeNeedsReauth        Code = "NEEDS_REAUTH"
	CodeRecordExists       Code = "RECORD_EXISTS"
	CodeRemoteUnavailable  Code = "REMOTE_UNAVAILABLE"
	CodeInvalidRecordShape Code = "INVALID_RECORD_SHAPE"

	// Paging errors
	CodeInvalidCursor Code = "INVALID_CURSOR"

	// Session errors
	CodeSessionMissing Code = "SESSION_MISSING"

	// Identity errors
	CodeIdentityUnresolved Code = "IDENTITY_UNRESOLVED"

	// Statistics errors
	CodeInconsistentState Code = "INCONSISTENT_STATE"
)

// xrpcNames maps domain codes to the error names used on the XRPC wire.
// Codes without an entry surface as InternalServerError.
var xrpcNames = map[Code]string{
	CodeInvalidRecording:   "InvalidRequest",
	CodeInvalidCursor:      "InvalidRequest",
	CodeNotFound:           "RecordNotFound",
	CodeNeedsReauth:        "ExpiredToken",
	CodeRecordExists:       "RecordAlreadyExists",
	CodeInvalidRecordShape: "InvalidRecord",
	CodeRemoteUnavailable:  "UpstreamFailure",
}

// XRPCName returns the XRPC error name for the code.
func (c Code) XRPCName() string {
	if name, ok := xrpcNames[c]; ok {
		return name
	}
	return "InternalServerError"
}

// Retryable reports whether an operation failing with this code may succeed
// on a later, caller-initiated attempt. Recording and consistency faults are
// terminal; transport faults are not.
func (c Code) Retryable() bool {
	switch c {
	case CodeRemoteTransport, CodeRemoteUnavailable:
		return true
	}
	return false
}
