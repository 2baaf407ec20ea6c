package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	level := log.GetLevel()
	t.Cleanup(func() {
		SetOutput(os.Stdout, os.Stderr)
		_ = SetFormat(FormatText)
		log.SetLevel(level)
	})
	return &out, &errOut
}

func TestLevelRouting(t *testing.T) {
	out, errOut := captureOutput(t)
	require.NoError(t, SetLogLevel("info"))

	Info("hello")
	Warnf("careful %d", 1)
	Debug("hidden")

	assert.Equal(t, "hello\n", out.String())
	assert.Contains(t, errOut.String(), "careful 1")
	assert.NotContains(t, errOut.String(), "hidden")
}

func TestInfoWithFields(t *testing.T) {
	out, _ := captureOutput(t)
	require.NoError(t, SetLogLevel("info"))

	WithFields(logrus.Fields{"provider": "AWS"}).Info("fetched")
	assert.Contains(t, out.String(), "fetched ")
	assert.Contains(t, out.String(), "provider=AWS")
}

func TestJSONFormat(t *testing.T) {
	out, _ := captureOutput(t)
	require.NoError(t, SetLogLevel("debug"))
	require.NoError(t, SetFormat(FormatJSON))

	WithFields(logrus.Fields{"state": "Ranking"}).Info("search")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "search", entry["msg"])
	assert.Equal(t, "Ranking", entry["state"])
}

func TestInvalidSettings(t *testing.T) {
	assert.Error(t, SetLogLevel("loud"))
	assert.Error(t, SetFormat("xml"))
}
