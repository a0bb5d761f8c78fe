package defs

// ErrorKind classifies every user-visible failure in the system
type ErrorKind string

const (
	ErrorFileTooLarge     ErrorKind = "file_too_large"
	ErrorInvalidFormat    ErrorKind = "invalid_format"
	ErrorProcessingFailed ErrorKind = "processing_failed"
	ErrorNetwork          ErrorKind = "network_error"
	ErrorUnknown          ErrorKind = "unknown"
)

// AppError is a classified, user-presentable error. It carries no recovery
// data - Message (and optionally Details) are shown to the user as-is, and
// transport-level detail never leaks past Details.
type AppError struct {
	Kind    ErrorKind `json:"type"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + " (" + e.Details + ")"
	}
	return e.Message
}

func NewError(kind ErrorKind, message, details string) *AppError {
	return &AppError{Kind: kind, Message: message, Details: details}
}
