package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
}

func TestLevelLabel(t *testing.T) {
	assert.Contains(t, levelLabel("warn"), "WRN")
	assert.Equal(t, "fatal", levelLabel("fatal"))
	assert.Equal(t, "???", levelLabel(3))
}

func TestWriterFor(t *testing.T) {
	assert.Equal(t, os.Stderr, writerFor(LogConfig{}))

	path := filepath.Join(t.TempDir(), "logs", "optionstrat.log")
	w := writerFor(LogConfig{File: true, FilePath: path, MaxSize: 1})
	lj, ok := w.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, path, lj.Filename)
	require.NoError(t, lj.Close())
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	logger = WithOperation(WithStrategy(WithSymbol(logger, "SPY"), "iron condor"), "neutral")

	LogDuration(logger, "probability_analysis", 5*time.Millisecond, errors.New("no break-even points"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "SPY", entry["symbol"])
	assert.Equal(t, "iron condor", entry["strategy"])
	assert.Equal(t, "probability_analysis", entry["operation"])
	assert.Equal(t, "no break-even points", entry["error"])
	assert.Equal(t, "Operation failed", entry["message"])
}

func TestLogPlan(t *testing.T) {
	var buf bytes.Buffer
	LogPlan(zerolog.New(&buf), 2, 1.5, 0.01)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "plan", entry["event"])
	assert.Equal(t, float64(2), entry["actions"])
}
