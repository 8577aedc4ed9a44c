// Package observability holds process-wide logging and metrics setup.
package observability

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var once sync.Once

// InitLogger configures the global zerolog logger. It is safe to call more than once;
// only the first call takes effect.
func InitLogger(appName, level, format string) {
	once.Do(func() {
		initLogger(os.Stdout, appName, level, format)
	})
}

func initLogger(out io.Writer, appName, level, format string) {
	zerolog.SetGlobalLevel(parseLevel(level))
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	var w io.Writer = out
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05.000"}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("app", appName).Logger()
}

func parseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, defaulting to info")
		return zerolog.InfoLevel
	}
	return lvl
}
