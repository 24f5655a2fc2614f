package control

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-aio/api"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hioload.toml")
	data := `
[pool]
page_size = 65536
page_count = 2
sweep_interval = "250ms"

[session]
read_buffer_size = 1024
max_content_length = 4096

[engine]
read_permits = 3
watcher_timeout = "20ms"

[transport]
protocol = "fixed-magic"
no_delay = false

[log]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := DefaultConfig()
	if cfg.Pool.PageSize != 65536 || cfg.Pool.PageCount != 2 {
		t.Fatalf("pool = %+v", cfg.Pool)
	}
	if cfg.Pool.SweepInterval.Duration != 250*time.Millisecond {
		t.Fatalf("sweep interval = %v", cfg.Pool.SweepInterval)
	}
	if cfg.Pool.SharedPageSize != def.Pool.SharedPageSize {
		t.Fatalf("unset key lost its default: %d", cfg.Pool.SharedPageSize)
	}
	if cfg.Session.ReadBufferSize != 1024 || cfg.Session.WriteBufferSize != def.Session.WriteBufferSize {
		t.Fatalf("session = %+v", cfg.Session)
	}
	if cfg.Engine.ReadPermits != 3 || cfg.Engine.WatcherTimeout.Duration != 20*time.Millisecond {
		t.Fatalf("engine = %+v", cfg.Engine)
	}
	if cfg.Transport.Protocol != "fixed-magic" || cfg.Transport.NoDelay {
		t.Fatalf("transport = %+v", cfg.Transport)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("log = %+v", cfg.Log)
	}
}

func TestParseRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"unknown key":     "[pool]\npage_sise = 10\n",
		"zero permits":    "[engine]\nread_permits = 0\n",
		"tiny read buf":   "[session]\nread_buffer_size = 4\n",
		"buffers > page":  "[pool]\npage_size = 1024\n[session]\nread_buffer_size = 1024\nwrite_buffer_size = 1024\n",
		"unknown codec":   "[transport]\nprotocol = \"morse\"\n",
		"bad level":       "[log]\nlevel = \"loud\"\n",
		"bad format":      "[log]\nformat = \"xml\"\n",
		"bad duration":    "[engine]\nwatcher_timeout = \"soon\"\n",
		"negative shared": "[pool]\nshared_page_size = -1\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(data); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	_, err := Parse("[engine]\nworkers = -1\n")
	if !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("validation error should wrap ErrInvalidArgument: %v", err)
	}
}

func TestNewLoggerHonoursEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogFormat, "json")

	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "debug", Format: "console"}, &buf)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"message":"shown"`) || !strings.Contains(out, `"app":"hioload-aio"`) {
		t.Fatalf("json output missing fields: %s", out)
	}
	if log.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("level = %v", log.GetLevel())
	}
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("answer", func() any { return 42 })
	names := dp.Names()
	if len(names) != 3 || names[0] != "answer" {
		t.Fatalf("names = %v", names)
	}
	state := dp.DumpState()
	if state["answer"] != 42 {
		t.Fatalf("state = %v", state)
	}
	if n, ok := state["runtime.cpus"].(int); !ok || n < 1 {
		t.Fatalf("runtime.cpus = %v", state["runtime.cpus"])
	}
}
