package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = logrus.New()

// InitLogging initializes logging. When logFile is non-empty, output is
// additionally written to a rotated file on disk.
func InitLogging(level string, logFile string) {
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if logFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, rotated))
	} else {
		logger.SetOutput(os.Stdout)
	}
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	logger.Infof(format, v...)
}

// Warnf logs warning level messages
func Warnf(format string, v ...interface{}) {
	logger.Warnf(format, v...)
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	logger.Errorf(format, v...)
}
