package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(buf *bytes.Buffer) []map[string]any {
	ret := []map[string]any{}
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(l), &m); err == nil {
			ret = append(ret, m)
		}
	}
	return ret
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, InfoLevel)
	l.Debug("hidden")
	l.Named("rest").Info("visible", String("key", "value"))

	got := lines(&buf)
	require.Len(t, got, 1)
	assert.Equal(t, "visible", got[0]["msg"])
	assert.Equal(t, "rest", got[0]["logger"])
	assert.Equal(t, "value", got[0]["key"])
}

func TestSetLevelIsShared(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, InfoLevel)
	child := l.Named("child")
	l.SetLevel(DebugLevel)
	child.Debug("now visible")

	assert.Len(t, lines(&buf), 1)
	assert.Equal(t, DebugLevel, child.Level())
	assert.True(t, child.Enabled(DebugLevel))
}

func TestFileConfigRules(t *testing.T) {
	tests := []struct {
		name string
		cfg  FileConfig
		want string
	}{
		{
			name: "default only",
			cfg:  FileConfig{},
			want: "info+:*",
		},
		{
			name: "named loggers",
			cfg: FileConfig{
				Level:   "warn",
				Loggers: map[string]string{"standings": "debug", "db.sql": "info"},
			},
			want: "info+:db.sql debug+:standings warn+:*,-db.sql,-standings",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Rules())
		})
	}
}

func TestWithFilter(t *testing.T) {
	cfg := FileConfig{Level: "warn", Loggers: map[string]string{"standings": "debug"}}
	opt, err := WithFilter(cfg.Rules())
	require.NoError(t, err)

	var buf bytes.Buffer
	l := New(&buf, DebugLevel, opt)
	l.Named("standings").Debug("kept")
	l.Named("rest").Info("dropped")
	l.Named("rest").Warn("kept too")

	got := lines(&buf)
	require.Len(t, got, 2)
	assert.Equal(t, "kept", got[0]["msg"])
	assert.Equal(t, "kept too", got[1]["msg"])
}

func TestReadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.yml")
	content := "level: error\nloggers:\n  db.sql: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := ReadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Level)
	assert.Equal(t, map[string]string{"db.sql": "debug"}, cfg.Loggers)

	_, err = ReadFileConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
