// internal/infra/logging/logging.go
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogenv "github.com/cbrewster/slog-env"
)

// New builds the process logger.
// レベルは GO_LOG で指定（例: GO_LOG=debug）。Cloud Run 上（K_SERVICE あり）では JSON 出力。
func New(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	var h slog.Handler
	if os.Getenv("K_SERVICE") != "" {
		opts.ReplaceAttr = cloudRunAttrs
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	return slog.New(slogenv.NewHandler(h, slogenv.WithDefaultLevel(slog.LevelInfo)))
}

// Setup installs New(os.Stdout) as the default logger.
func Setup() *slog.Logger {
	l := New(os.Stdout)
	slog.SetDefault(l)
	return l
}

// Cloud Logging は "severity" / "message" を解釈する
func cloudRunAttrs(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// Mask は ID / アドレスをログ用に短縮します。
func Mask(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return ""
	}
	if len(t) <= 10 {
		return t
	}
	return t[:4] + "***" + t[len(t)-4:]
}
