package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is shared by all packages. Output level is controlled globally, so copies
// of Logger (e.g. `var logger = logging.Logger`) follow SetLevel.
var Logger zerolog.Logger

func init() {
	Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	SetLevel(os.Getenv("LOG_LEVEL"))
}

// SetLevel changes global log level. Unknown or empty level means info.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
