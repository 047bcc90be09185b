package logger

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerWritesLevelAndArgs(t *testing.T) {
	buf := new(bytes.Buffer)
	l := New(log.New(buf, "", 0), Options{})

	l.Error("saving attendance", errors.New("boom"))
	l.Info("started")

	out := buf.String()
	assert.Contains(t, out, "[ERROR] saving attendance")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "[INFO] started")
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().Warn("ignored", map[string]interface{}{"k": 1})
	})
}
