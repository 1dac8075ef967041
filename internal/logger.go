package internal

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultLevel is used until the config names a valid level.
const DefaultLevel = logrus.WarnLevel

var (
	once   sync.Once
	logger *logrus.Logger
)

// GetLogger returns the logger shared by all nerbio commands. It writes to
// stderr until Setup redirects it, so logs never mix with command output.
func GetLogger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()

		logger.Out = os.Stderr
		logger.SetLevel(DefaultLevel)

		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			PadLevelText:  true,
		})
	})

	return logger
}

// Setup sets the level and, when w is not nil, the output of the shared
// logger. An unknown level falls back to DefaultLevel. It returns the level
// in effect.
func Setup(w io.Writer, level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = DefaultLevel
	}

	l := GetLogger()
	l.SetLevel(lvl)
	if w != nil {
		l.SetOutput(w)
	}
	return lvl
}

func SetLogLevel(level logrus.Level) {
	GetLogger().SetLevel(level)
}

// LeveledLogger is the key/value logger of the retrying http client.
type LeveledLogger interface {
	Error(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

var _ LeveledLogger = &LeveledLogrus{}

// LeveledLogrus writes key/value pairs as logrus fields. Every entry
// carries the component that logged it.
type LeveledLogrus struct {
	entry *logrus.Entry
}

func NewLeveledLogrus(logger *logrus.Logger, component string) *LeveledLogrus {
	return &LeveledLogrus{entry: logger.WithField("component", component)}
}

// with turns keysAndValues into fields. Pairs with a non string key and a
// trailing key without value are skipped.
func (l *LeveledLogrus) with(keysAndValues []interface{}) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}

	return l.entry.WithFields(fields)
}

func (l *LeveledLogrus) Error(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Error(msg)
}

func (l *LeveledLogrus) Info(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Info(msg)
}

func (l *LeveledLogrus) Warn(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Warn(msg)
}

func (l *LeveledLogrus) Debug(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Debug(msg)
}
