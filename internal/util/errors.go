package util

import (
	"fmt"
	"log/slog"
)

// Kind tags a ToolError with the error taxonomy of spec.md §7, driving the
// driver's abort/skip/continue policy.
type Kind string

const (
	KindSchema     Kind = "schema_error"
	KindInput      Kind = "input_error"
	KindCell       Kind = "cell_error"
	KindResolution Kind = "resolution_error"
	KindIO         Kind = "io_error"
	KindDecode     Kind = "decode_error"
)

// ToolError carries a taxonomy Kind alongside the wrapped cause, for the
// driver's per-scheme abort policy and for structured logging.
type ToolError struct {
	Kind        Kind
	OriginalErr error
	Message     string
	Attrs       []slog.Attr
}

func (e *ToolError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
	}
	return e.Message
}

func (e *ToolError) Unwrap() error { return e.OriginalErr }

// NewError builds a ToolError with no wrapped cause.
func NewError(kind Kind, message string, attrs ...slog.Attr) *ToolError {
	return &ToolError{Kind: kind, Message: message, Attrs: attrs}
}

// WrapError builds a ToolError wrapping err under the given kind.
func WrapError(kind Kind, err error, message string, attrs ...slog.Attr) *ToolError {
	return &ToolError{Kind: kind, OriginalErr: err, Message: message, Attrs: attrs}
}

// LogError logs err with its taxonomy Kind and structured attributes when it
// is (or wraps) a ToolError, falling back to a plain error log otherwise.
func LogError(logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	var te *ToolError
	switch e := err.(type) {
	case *ToolError:
		te = e
	default:
		if u, ok := err.(interface{ Unwrap() error }); ok {
			if inner, ok := u.Unwrap().(*ToolError); ok {
				te = inner
			}
		}
	}

	if te == nil {
		logger.Error("unhandled error", slog.String("error", err.Error()))
		return
	}

	logAttrs := []any{slog.String("kind", string(te.Kind)), slog.String("message", te.Message)}
	if te.OriginalErr != nil {
		logAttrs = append(logAttrs, slog.String("cause", te.OriginalErr.Error()))
	}
	for _, a := range te.Attrs {
		logAttrs = append(logAttrs, a)
	}
	logger.Error("processing failed", logAttrs...)
}
