package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToWarnText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := New(Options{Output: &buf})
	require.NoError(t, err)

	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	log.Info("hidden")
	log.WithField("user_id", "u1").Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "user_id=u1")
}

func TestNewJSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	log.WithField("route", "main_app").Debug("navigating")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "main_app", entry["route"])
	assert.Equal(t, "navigating", entry["msg"])
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Level: "loud"})
	assert.ErrorContains(t, err, "parse log level")

	_, err = New(Options{Format: "xml"})
	assert.ErrorContains(t, err, "unsupported log format")
}
