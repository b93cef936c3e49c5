package debugctx

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

type enabledKey struct{}

func WithEnabled(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, enabledKey{}, enabled)
}

func Enabled(ctx context.Context) bool {
	if ctx == nil {
		return false
	}

	enabled, _ := ctx.Value(enabledKey{}).(bool)
	return enabled
}

// WithLogger attaches logger to ctx. Engine and provider code pulls it back
// with Logger so callers decide where structured output goes.
func WithLogger(ctx context.Context, logger logr.Logger) context.Context {
	return logr.NewContext(ctx, logger)
}

// Logger returns the context logger, or a discarding logger when none is set.
func Logger(ctx context.Context) logr.Logger {
	if ctx == nil {
		return logr.Discard()
	}
	logger, err := logr.FromContext(ctx)
	if err != nil {
		return logr.Discard()
	}
	return logger
}

// NewWriterLogger builds a funcr logger that prints one line per entry to
// writer. Debug (V(1)) entries are only emitted when debug is true.
func NewWriterLogger(writer io.Writer, debug bool) logr.Logger {
	if writer == nil {
		return logr.Discard()
	}

	verbosity := 0
	if debug {
		verbosity = 1
	}

	return funcr.New(func(prefix, args string) {
		line := strings.TrimSpace(args)
		if prefix != "" {
			line = prefix + ": " + line
		}
		_, _ = fmt.Fprintln(writer, line)
	}, funcr.Options{Verbosity: verbosity})
}

func Printf(ctx context.Context, format string, args ...any) {
	if !Enabled(ctx) {
		return
	}

	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	if message == "" {
		return
	}

	Logger(ctx).V(1).Info("debug: " + message)
}
