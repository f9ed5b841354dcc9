package logger

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AnnotateError wraps an error with structured logging attributes (slog key-value pairs).
// When the returned error is logged through a logger set up by ConfigureLogging,
// the attributes are extracted and written next to the error.
//
// Args should be key-value pairs compatible with slog (string keys followed by values).
//
// Example:
//
//	result := machine.TransitionTo(ctx, OrderPaid)
//	if !result.Success {
//	    return AnnotateError(result.Err, "order_id", order.ID, "from", result.PreviousState)
//	}
//
// Returns nil if err is nil.
func AnnotateError(err error, args ...any) error {
	if err == nil {
		return nil
	}

	r := slog.NewRecord(time.Now(), slog.LevelDebug, "", 0)
	r.Add(args...)

	attrs := make([]slog.Attr, 0, r.NumAttrs())

	r.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attr)

		return true
	})

	return &slogError{
		err:   err,
		attrs: attrs,
	}
}

// slogError wraps an error with structured logging attributes.
type slogError struct {
	err   error
	attrs []slog.Attr
}

func (s *slogError) Error() string {
	return s.err.Error()
}

func (s *slogError) Unwrap() error {
	return s.err
}

var _ error = (*slogError)(nil)

// ErrorAttrs returns every attribute attached with AnnotateError anywhere in
// err's chain, outermost first. Joined errors are walked in order.
func ErrorAttrs(err error) []slog.Attr {
	var attrs []slog.Attr

	walkAnnotations(err, func(se *slogError) {
		attrs = append(attrs, se.attrs...)
	})

	return attrs
}

func walkAnnotations(err error, visit func(*slogError)) {
	for err != nil {
		if se, ok := err.(*slogError); ok { //nolint:errorlint // walking the chain by hand
			visit(se)
		}

		switch unwrapper := err.(type) { //nolint:errorlint // walking the chain by hand
		case interface{ Unwrap() []error }:
			for _, inner := range unwrapper.Unwrap() {
				walkAnnotations(inner, visit)
			}

			return
		case interface{ Unwrap() error }:
			err = unwrapper.Unwrap()
		default:
			return
		}
	}
}

// stripAnnotations removes the annotation wrappers at the top of err.
func stripAnnotations(err error) error {
	for {
		se, ok := err.(*slogError) //nolint:errorlint // only the outer layers are stripped
		if !ok {
			return err
		}

		err = se.err
	}
}

// slogErrorLogger is a slog.Handler decorator that extracts structured attributes
// from annotated errors (created via AnnotateError) and includes them in log output.
// Joined errors are split into key[0], key[1], ... attributes.
type slogErrorLogger struct {
	inner slog.Handler
}

var _ slog.Handler = (*slogErrorLogger)(nil)

func (s *slogErrorLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return s.inner.Enabled(ctx, level)
}

func (s *slogErrorLogger) Handle(ctx context.Context, record slog.Record) error {
	var (
		baseAttrs []slog.Attr
		errAttrs  []slog.Attr
		rewritten bool
	)

	record.Attrs(func(attr slog.Attr) bool {
		err, ok := attr.Value.Any().(error)
		if !ok || attr.Value.Kind() != slog.KindAny {
			baseAttrs = append(baseAttrs, attr)

			return true
		}

		extracted := ErrorAttrs(err)

		joined, isJoined := stripAnnotations(err).(interface{ Unwrap() []error }) //nolint:errorlint
		if len(extracted) == 0 && !isJoined {
			baseAttrs = append(baseAttrs, attr)

			return true
		}

		rewritten = true
		errAttrs = append(errAttrs, extracted...)

		if !isJoined {
			baseAttrs = append(baseAttrs, slog.Any(attr.Key, stripAnnotations(err)))

			return true
		}

		for i, inner := range flattenJoined(joined.Unwrap()) {
			baseAttrs = append(baseAttrs, slog.Any(fmt.Sprintf("%s[%d]", attr.Key, i), stripAnnotations(inner)))
		}

		return true
	})

	if !rewritten {
		return s.inner.Handle(ctx, record)
	}

	r := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	r.AddAttrs(baseAttrs...)
	r.AddAttrs(errAttrs...)

	return s.inner.Handle(ctx, r)
}

// flattenJoined expands nested joins into one list of leaf errors.
func flattenJoined(errs []error) []error {
	out := make([]error, 0, len(errs))

	for _, err := range errs {
		if joined, ok := stripAnnotations(err).(interface{ Unwrap() []error }); ok { //nolint:errorlint
			out = append(out, flattenJoined(joined.Unwrap())...)

			continue
		}

		out = append(out, err)
	}

	return out
}

func (s *slogErrorLogger) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &slogErrorLogger{inner: s.inner.WithAttrs(attrs)}
}

func (s *slogErrorLogger) WithGroup(name string) slog.Handler {
	return &slogErrorLogger{inner: s.inner.WithGroup(name)}
}
