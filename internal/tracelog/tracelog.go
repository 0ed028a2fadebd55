// Package tracelog wraps the package-level logrus.Logger used for
// interpreter tracing: frame entry/exit and instruction dispatch. The
// uncaught-exception report is written to stderr by the executor directly,
// not through this logger. User program output (System.out) never goes
// through here — it writes straight to the executor's configured io.Writer.
package tracelog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})
	return l
}

// SetVerbose raises the logger to Debug level when v is true, restoring
// InfoLevel otherwise.
func SetVerbose(v bool) {
	if v {
		log.SetLevel(logrus.DebugLevel)
		return
	}
	log.SetLevel(logrus.InfoLevel)
}

func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }
func Warnf(format string, args ...interface{})  { log.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }
func Infof(format string, args ...interface{})  { log.Infof(format, args...) }

// WithField returns a logrus entry for structured call sites (e.g. class
// name, frame depth) that want more than a formatted string.
func WithField(key string, value interface{}) *logrus.Entry {
	return log.WithField(key, value)
}
