package logging

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var records []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		records = append(records, rec)
	}
	return records
}

func TestInitWritesJSON(t *testing.T) {
	Shutdown()

	path := filepath.Join(t.TempDir(), "vmtui.log")
	Init(Config{File: path, Level: "info"})
	defer Shutdown()

	Logger().Info("test_message", "key", "value")
	Logger().Debug("filtered")

	records := readRecords(t, path)
	require.Len(t, records, 1)
	assert.Equal(t, "test_message", records[0]["msg"])
	assert.Equal(t, "value", records[0]["key"])
}

func TestInitWithoutFileDiscards(t *testing.T) {
	Shutdown()

	Init(Config{})
	defer Shutdown()

	l := Logger()
	require.NotNil(t, l)
	l.Info("this goes nowhere")
}

func TestForComponentCreatedBeforeInit(t *testing.T) {
	Shutdown()

	compLog := ForComponent(CompStream)

	path := filepath.Join(t.TempDir(), "vmtui.log")
	Init(Config{File: path, Level: "debug"})
	defer Shutdown()

	compLog.With("session", "abc").Debug("line", "n", 1)

	records := readRecords(t, path)
	require.Len(t, records, 1)
	assert.Equal(t, CompStream, records[0]["component"])
	assert.Equal(t, "abc", records[0]["session"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name), name)
	}
}
