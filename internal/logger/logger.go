// Package logger builds the logrus instance shared by the server, the audit
// pipeline and the cron jobs.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type appNameHook struct {
	appName string
}

// Levels implements logrus.Hook.
func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Data["app"] = h.appName
	return nil
}

// New returns a logger writing to stdout.  Production uses JSON lines, other
// environments use the text formatter with full timestamps.
func New(appName, level string, production bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	lvlStr := strings.ToLower(strings.TrimSpace(level))
	if lvlStr == "" {
		lvlStr = "info"
	}
	lvl, err := logrus.ParseLevel(lvlStr)
	if err != nil {
		l.Warnf("invalid LOG_LEVEL %q, defaulting to info", level)
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if production {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	l.AddHook(&appNameHook{appName: appName})
	return l
}
