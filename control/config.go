// control/config.go
// Author: momentics <momentics@gmail.com>
//
// TOML configuration with defaults and validation.

package control

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/protocol"
)

// minReadBuffer keeps room for any codec header.
const minReadBuffer = 16

// Duration decodes TOML strings such as "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete runtime configuration.
type Config struct {
	Pool      PoolConfig      `toml:"pool"`
	Session   SessionConfig   `toml:"session"`
	Engine    EngineConfig    `toml:"engine"`
	Transport TransportConfig `toml:"transport"`
	Log       LogConfig       `toml:"log"`
}

type PoolConfig struct {
	PageSize       int      `toml:"page_size"`
	PageCount      int      `toml:"page_count"`
	SharedPageSize int      `toml:"shared_page_size"`
	SweepInterval  Duration `toml:"sweep_interval"`
}

type SessionConfig struct {
	ReadBufferSize     int `toml:"read_buffer_size"`
	WriteBufferSize    int `toml:"write_buffer_size"`
	WriteQueueCapacity int `toml:"write_queue_capacity"`
	MaxContentLength   int `toml:"max_content_length"`
}

type EngineConfig struct {
	ReadPermits    int      `toml:"read_permits"`
	Workers        int      `toml:"workers"`
	WatcherTimeout Duration `toml:"watcher_timeout"`
	DrainBatch     int      `toml:"drain_batch"`
	PinWorkers     bool     `toml:"pin_workers"`
}

type TransportConfig struct {
	Protocol  string   `toml:"protocol"`
	NoDelay   bool     `toml:"no_delay"`
	ReuseAddr bool     `toml:"reuse_addr"`
	KeepAlive Duration `toml:"keep_alive"`
}

type LogConfig struct {
	Level     string `toml:"level"`  // trace|debug|info|warn|error|disabled
	Format    string `toml:"format"` // console|json
	NoColor   bool   `toml:"no_color"`
	Timestamp bool   `toml:"timestamp"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Pool: PoolConfig{
			PageSize:       4 << 20,
			PageCount:      4,
			SharedPageSize: 1 << 20,
			SweepInterval:  Duration{time.Second},
		},
		Session: SessionConfig{
			ReadBufferSize:     16 << 10,
			WriteBufferSize:    16 << 10,
			WriteQueueCapacity: 1024,
			MaxContentLength:   1 << 20,
		},
		Engine: EngineConfig{
			ReadPermits:    runtime.NumCPU(),
			Workers:        runtime.NumCPU(),
			WatcherTimeout: Duration{100 * time.Millisecond},
			DrainBatch:     16,
		},
		Transport: TransportConfig{
			Protocol:  protocol.NameAttachment,
			NoDelay:   true,
			ReuseAddr: true,
			KeepAlive: Duration{30 * time.Second},
		},
		Log: LogConfig{
			Level:     "info",
			Format:    "console",
			Timestamp: true,
		},
	}
}

// LoadFile reads a TOML file over DefaultConfig and validates the result.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return finish(cfg, meta)
}

// Parse decodes TOML text over DefaultConfig and validates the result.
func Parse(data string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return finish(cfg, meta)
}

func finish(cfg Config, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("config: unknown keys %s: %w", strings.Join(keys, ", "), api.ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{c.Pool.PageSize > 0, "pool.page_size must be positive"},
		{c.Pool.PageCount > 0, "pool.page_count must be positive"},
		{c.Pool.SharedPageSize >= 0, "pool.shared_page_size must not be negative"},
		{c.Pool.SweepInterval.Duration > 0, "pool.sweep_interval must be positive"},
		{c.Session.ReadBufferSize >= minReadBuffer, fmt.Sprintf("session.read_buffer_size must be at least %d", minReadBuffer)},
		{c.Session.WriteBufferSize > 0, "session.write_buffer_size must be positive"},
		{c.Session.ReadBufferSize+c.Session.WriteBufferSize <= c.Pool.PageSize, "session buffers must fit in one page"},
		{c.Session.WriteQueueCapacity > 0, "session.write_queue_capacity must be positive"},
		{c.Session.MaxContentLength > 0, "session.max_content_length must be positive"},
		{c.Engine.ReadPermits > 0, "engine.read_permits must be positive"},
		{c.Engine.Workers > 0, "engine.workers must be positive"},
		{c.Engine.WatcherTimeout.Duration > 0, "engine.watcher_timeout must be positive"},
		{c.Engine.DrainBatch > 0, "engine.drain_batch must be positive"},
		{c.Transport.KeepAlive.Duration >= 0, "transport.keep_alive must not be negative"},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("config: %s: %w", chk.msg, api.ErrInvalidArgument)
		}
	}
	if _, err := protocol.Lookup(c.Transport.Protocol, c.Session.MaxContentLength); err != nil {
		return fmt.Errorf("config: transport.protocol: %w", err)
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return fmt.Errorf("config: log.level %q: %w", c.Log.Level, api.ErrInvalidArgument)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("config: log.format %q: %w", c.Log.Format, api.ErrInvalidArgument)
	}
	return nil
}
