package log

import (
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

const (
	// default log level
	defaultLogLevel = logrus.InfoLevel

	// default log file params
	defaultLogMaxSize    = 500  // maximum file size before rotation, in MB
	defaultLogMaxBackups = 3    // maximum number of old log files to keep
	defaultLogMaxAge     = 28   // maximum number of days to retain old log files
	defaultLogCompress   = true // whether to compress the rotated log files using gzip
)

// Fields is an alias so callers don't need to import logrus directly.
type Fields = logrus.Fields

// Global is the logger instance used by the application when no more
// specific logger has been handed out.
var Global = NewLogger("", "info")

// ConfigureGlobal reconfigures the global logger's output file and level.
func ConfigureGlobal(logFilename string, logLevel string) {
	Global = NewLogger(logFilename, logLevel)
}

// NewLogger creates a logger writing to the given file (and stdout). An
// empty filename disables file output.
func NewLogger(logFilename string, logLevel string) *Logger {
	logger := logrus.New()

	if logFilename != "" {
		output := &lumberjack.Logger{
			Filename:   logFilename,
			MaxSize:    defaultLogMaxSize,
			MaxBackups: defaultLogMaxBackups,
			MaxAge:     defaultLogMaxAge,
			Compress:   defaultLogCompress,
		}
		logger.SetOutput(io.MultiWriter(output, os.Stdout))
	} else {
		logger.SetOutput(os.Stdout)
	}

	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		PadLevelText:    true,
		FullTimestamp:   true,
		TimestampFormat: "01-02|15:04:05.000",
	})
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = defaultLogLevel
	}
	logger.SetLevel(level)
	return &Logger{entry: logrus.NewEntry(logger)}
}

func WithField(key string, val interface{}) *Logger {
	return Global.WithField(key, val)
}

func WithFields(fields Fields) *Logger {
	return Global.WithFields(fields)
}

func Trace(args ...interface{})              { Global.Trace(args...) }
func Tracef(msg string, args ...interface{}) { Global.Tracef(msg, args...) }
func Debug(args ...interface{})              { Global.Debug(args...) }
func Debugf(msg string, args ...interface{}) { Global.Debugf(msg, args...) }
func Info(args ...interface{})               { Global.Info(args...) }
func Infof(msg string, args ...interface{})  { Global.Infof(msg, args...) }
func Warn(args ...interface{})               { Global.Warn(args...) }
func Warnf(msg string, args ...interface{})  { Global.Warnf(msg, args...) }
func Error(args ...interface{})              { Global.Error(args...) }
func Errorf(msg string, args ...interface{}) { Global.Errorf(msg, args...) }
func Fatal(args ...interface{})              { Global.Fatal(args...) }
func Fatalf(msg string, args ...interface{}) { Global.Fatalf(msg, args...) }
