package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/heartmarshall/submission-backend/internal/config"
	"github.com/heartmarshall/submission-backend/pkg/ctxutil"
)

// NewLogger builds the process logger on stderr and installs it as the slog
// default. Format "json" is for production; "text" adds source locations.
// Records logged with a context gain request_id and user_id attributes.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)
	return logger
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	text := strings.EqualFold(cfg.Format, "text")
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: text,
	}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if text {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(contextHandler{handler}).With(slog.String("app", "submission-backend"))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// contextHandler adds the request id and caller from the record's context
// unless the record already carries them.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	requestID := ctxutil.RequestIDFromCtx(ctx)
	userID, hasUser := ctxutil.UserIDFromCtx(ctx)
	if requestID == "" && !hasUser {
		return h.Handler.Handle(ctx, r)
	}

	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "request_id":
			requestID = ""
		case "user_id":
			hasUser = false
		}
		return true
	})
	if requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	if hasUser {
		r.AddAttrs(slog.String("user_id", userID.String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}
