package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var Log = zerolog.New(os.Stdout).With().Timestamp().Logger()

var debugEnabled bool

// Init configures the process-wide logger. Development gets a console writer
// with caller info, everything else gets JSON lines.
func Init(environment string) {
	zerolog.TimeFieldFormat = time.RFC3339
	debugEnabled = environment == "development"

	var out io.Writer = os.Stdout
	if debugEnabled {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
		Log = zerolog.New(out).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
		return
	}
	Log = zerolog.New(out).With().Timestamp().Logger()
}

// SetOutput is used by tests to silence or capture output.
func SetOutput(w io.Writer) {
	Log = Log.Output(w)
}

func Info(format string, v ...interface{}) {
	Log.Info().Msgf(format, v...)
}

func Error(format string, v ...interface{}) {
	Log.Error().Msgf(format, v...)
}

func Debug(format string, v ...interface{}) {
	if debugEnabled {
		Log.Debug().Msgf(format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	Log.Warn().Msgf(format, v...)
}

func Fatal(format string, v ...interface{}) {
	Log.Fatal().Msgf(format, v...)
}
