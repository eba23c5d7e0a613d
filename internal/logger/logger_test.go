package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestWithComponent(t *testing.T) {
	entry := WithComponent("test-component")
	if entry == nil {
		t.Fatal("expected non-nil entry")
	}

	if val, ok := entry.Data["component"]; !ok {
		t.Error("expected component field to be set")
	} else if val != "test-component" {
		t.Errorf("expected component 'test-component', got '%v'", val)
	}
}

func TestLoggerInit(t *testing.T) {
	if Logger == nil {
		t.Fatal("expected Logger to be initialized")
	}
	if Logger.Out != os.Stderr {
		t.Error("expected Logger output to be os.Stderr")
	}
}

func TestSetLevel(t *testing.T) {
	origLevel := Logger.GetLevel()
	defer Logger.SetLevel(origLevel)

	tests := []struct {
		value    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{" warn ", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.NoError(t, SetLevel(tt.value))
			assert.Equal(t, tt.expected, Logger.GetLevel())
		})
	}
}

func TestSetLevel_Invalid(t *testing.T) {
	origLevel := Logger.GetLevel()
	defer Logger.SetLevel(origLevel)

	assert.Error(t, SetLevel("loud"))
	assert.Equal(t, origLevel, Logger.GetLevel())
}

func TestLeveled_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	origOut, origLevel := Logger.Out, Logger.GetLevel()
	defer func() {
		Logger.SetOutput(origOut)
		Logger.SetLevel(origLevel)
	}()
	SetOutput(&buf)
	Logger.SetLevel(logrus.DebugLevel)

	l := NewLeveled("http")
	l.Debug("performing request", "method", "GET", "url", "https://example.com", 42, "ignored", "dangling")

	out := buf.String()
	assert.Contains(t, out, "performing request")
	assert.Contains(t, out, "method=GET")
	assert.Contains(t, out, "component=http")
	assert.NotContains(t, out, "ignored")
}
