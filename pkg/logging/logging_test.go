package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "info", FormatJSON)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("shown", zap.String("kind", "note"))
	require.NoError(t, log.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "note", line["kind"])
}

func TestNewRejectsUnknownInput(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", FormatJSON)
	assert.Error(t, err)
	_, err = New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}

func TestOffIsNop(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "off", "")
	require.NoError(t, err)
	log.Error("nothing")
	assert.Zero(t, buf.Len())
	assert.NotNil(t, OrNop(nil))
}
