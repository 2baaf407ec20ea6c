package logger

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	log  = logrus.New()
	hook = NewLevelRouterHook()
)

func init() {
	// all output goes through the hook
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.ErrorLevel)
	log.AddHook(hook)
}

// SetLogLevel accepts debug, info, warn or error.
func SetLogLevel(level string) error {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		return errors.Errorf("invalid log level: %s", level)
	}
	return nil
}

func SetFormat(format string) error {
	if format != FormatText && format != FormatJSON {
		return errors.Errorf("invalid log format: %s", format)
	}
	hook.SetFormat(format)
	return nil
}

// SetOutput redirects info to out and the other levels to errOut.
func SetOutput(out, errOut io.Writer) {
	hook.SetWriters(out, errOut)
}

func Logger() *logrus.Logger {
	return log
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}

func WithError(err error) *logrus.Entry {
	return log.WithError(err)
}

func Info(args ...interface{}) {
	log.Info(args...)
}

func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

func Warn(args ...interface{}) {
	log.Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

func Error(args ...interface{}) {
	log.Error(args...)
}

func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

func Debug(args ...interface{}) {
	log.Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Fatal logs at error level and exits.
func Fatal(args ...interface{}) {
	log.Error(args...)
	os.Exit(1)
}

func Fatalf(format string, args ...interface{}) {
	log.Errorf(format, args...)
	os.Exit(1)
}
