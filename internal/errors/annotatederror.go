// Package errors provides error values that carry structured logging annotations.
//
// It is a drop-in replacement for the standard library errors package. Errors
// created with New or Wrap remember where they were created so that SlogError
// can point at the offending line without a full stack trace.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// annotatedError wraps an error with a message, slog attributes, and the
// source location where it was created.
type annotatedError struct {
	msg    string
	err    error
	attrs  []slog.Attr
	source string
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// New returns an error that records the caller's source location.
func New(msg string) error {
	return &annotatedError{
		msg:    msg,
		err:    nil,
		attrs:  nil,
		source: callerSource(2), //nolint:mnd // skip runtime.Caller and New.
	}
}

// NewSentinel returns a plain sentinel error without a source location.
// Use it for package-level error values that are compared with Is.
func NewSentinel(msg string) error {
	return errors.New(msg) //nolint:err113 // this is the sentinel constructor.
}

// Wrap annotates err with a message and optional slog attributes. The
// resulting error records the caller's source location. A nil err is
// tolerated so that Wrap can be used unconditionally in cleanup paths.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return &annotatedError{
		msg:    msg,
		err:    err,
		attrs:  attrs,
		source: callerSource(2), //nolint:mnd // skip runtime.Caller and Wrap.
	}
}

// DecoratePanic converts a recovered panic value into an error whose source
// location points at the panicking line rather than the recover site.
func DecoratePanic(recovered any) error {
	return &annotatedError{
		msg:    fmt.Sprintf("panic: %v", recovered),
		err:    nil,
		attrs:  nil,
		source: panicSource(),
	}
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if any.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join wraps a multierror around the given errors discarding nil values.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// SlogError renders err as a structured "error" attribute containing the
// message, the creation source, and any annotations collected from the
// error tree, outermost first.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Group("error", slog.String("message", "<nil>"))
	}

	var (
		attrs  []slog.Attr
		source string
	)
	collectAnnotations(err, &attrs, &source)

	groupArgs := []any{slog.String("message", err.Error())}
	if source != "" {
		groupArgs = append(groupArgs, slog.String("source", source))
	}
	if len(attrs) > 0 {
		annotationArgs := make([]any, 0, len(attrs))
		for _, attr := range attrs {
			annotationArgs = append(annotationArgs, attr)
		}
		groupArgs = append(groupArgs, slog.Group("annotations", annotationArgs...))
	}

	return slog.Group("error", groupArgs...)
}

// collectAnnotations walks the error tree gathering attributes and the
// outermost source location.
func collectAnnotations(err error, attrs *[]slog.Attr, source *string) {
	if err == nil {
		return
	}

	var annotated *annotatedError
	if errors.As(err, &annotated) {
		if *source == "" {
			*source = annotated.source
		}
		*attrs = append(*attrs, annotated.attrs...)
		collectAnnotations(annotated.err, attrs, source)
		return
	}

	if unwrapped := errors.Unwrap(err); unwrapped != nil {
		collectAnnotations(unwrapped, attrs, source)
	}
}

// callerSource resolves the file:line of the caller at the given skip depth.
func callerSource(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", trimFilePath(file), line)
}

// panicSource walks the stack to find the frame that triggered the panic.
// It returns the frame following runtime.gopanic, falling back to the first
// frame outside this package.
func panicSource() string {
	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(2, pcs) //nolint:mnd // skip runtime.Callers and panicSource.
	frames := runtime.CallersFrames(pcs[:n])

	var (
		fallback  string
		seenPanic bool
	)
	for {
		frame, more := frames.Next()
		if seenPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", trimFilePath(frame.File), frame.Line)
		}
		if strings.HasSuffix(frame.Function, "gopanic") {
			seenPanic = true
		}
		if fallback == "" && !strings.Contains(frame.File, "annotatederror.go") &&
			!strings.HasPrefix(frame.Function, "runtime.") {
			fallback = fmt.Sprintf("%s:%d", trimFilePath(frame.File), frame.Line)
		}
		if !more {
			break
		}
	}
	return fallback
}

// trimFilePath shortens an absolute file path to its last two elements.
func trimFilePath(file string) string {
	parts := strings.Split(file, "/")
	const keep = 2
	if len(parts) <= keep {
		return file
	}
	return strings.Join(parts[len(parts)-keep:], "/")
}
