package logger

import (
	"github.com/sirupsen/logrus"
)

// Leveled adapts a logrus entry to the key/value leveled logger interface
// used by HTTP client libraries such as go-retryablehttp.
type Leveled struct {
	entry *logrus.Entry
}

// NewLeveled returns a leveled logger tagged with component.
func NewLeveled(component string) *Leveled {
	return &Leveled{entry: WithComponent(component)}
}

func (l *Leveled) Error(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Error(msg)
}

func (l *Leveled) Info(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Info(msg)
}

func (l *Leveled) Debug(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Debug(msg)
}

func (l *Leveled) Warn(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Warn(msg)
}

func (l *Leveled) with(keysAndValues []interface{}) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return l.entry.WithFields(fields)
}
