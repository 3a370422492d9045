// Package obslog centralizes logrus setup for structured, leveled
// logging with component fields, used throughout the runtime instead
// of bare fmt.Printf.
package obslog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Init configures the default logrus logger for the process. level
// comes from internal/config.Runtime.LogLevel; an unparseable level
// falls back to Info rather than failing startup.
func Init(level string) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("requested", level).Warn("unknown log level, defaulting to info")
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
}
