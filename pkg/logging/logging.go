package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger tagged with the service name. LOG_LEVEL controls
// verbosity (default info).
func New(service string) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l.WithField("service", service)
}
