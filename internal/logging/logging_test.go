package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug").GetLevel())
	assert.Equal(t, logrus.WarnLevel, New(" warn ").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("chatty").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("").GetLevel())
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("info", &buf)

	log.WithField("clusters", 3).Info("clusters computed")
	log.Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "clusters computed", entry["msg"])
	assert.Equal(t, float64(3), entry["clusters"])
	assert.Equal(t, "info", entry["level"])
}
