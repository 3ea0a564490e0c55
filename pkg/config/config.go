package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts "300ms" style yaml values, which yaml.v3 will not decode
// into a bare time.Duration. Plain integers still parse as nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var n int64
	if err := node.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	// Path is where the config was loaded from, kept for runtime reloads.
	Path string `yaml:"-"`

	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     Duration `yaml:"read_timeout"`
		WriteTimeout    Duration `yaml:"write_timeout"`
		ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Storage struct {
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout Duration `yaml:"batch_timeout"`
	} `yaml:"storage"`
	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		SignalsTopic   string   `yaml:"signals_topic"`
		SnapshotsTopic string   `yaml:"snapshots_topic"`
		LogsTopic      string   `yaml:"logs_topic"`
		RequiredAcks   int      `yaml:"required_acks"`
		Compression    string   `yaml:"compression"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout Duration `yaml:"write_timeout"`
			ReadTimeout  Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin Duration `yaml:"backoff_min"`
			BackoffMax Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      Duration `yaml:"dial_timeout"`
		ReadTimeout      Duration `yaml:"read_timeout"`
		WriteTimeout     Duration `yaml:"write_timeout"`
		MaxExecutionTime Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size"`
		MinIdleConns int           `yaml:"min_idle_conns"`
		PoolTimeout  Duration `yaml:"pool_timeout"`
		Prefix       string        `yaml:"prefix"`
	} `yaml:"redis"`
	Feed struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay Duration `yaml:"reconnect_delay"`
		PingInterval   Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Features struct {
		WindowSize int           `yaml:"window_size"`
		EMAFast    int           `yaml:"ema_fast"`
		EMASlow    int           `yaml:"ema_slow"`
		RSIPeriod  int           `yaml:"rsi_period"`
		ATRPeriod  int           `yaml:"atr_period"`
		VolWindow  int           `yaml:"vol_window"`
		Timeframe  string        `yaml:"timeframe"`
		MaxGap     Duration `yaml:"max_gap"`
	} `yaml:"features"`
	Regime struct {
		ConfirmCount      int     `yaml:"confirm_count"`
		HighVolThreshold  float64 `yaml:"high_vol_threshold"`
		TrendThreshold    float64 `yaml:"trend_threshold"`
		IlliquidSpreadBps float64 `yaml:"illiquid_spread_bps"`
		IlliquidVolumeZ   float64 `yaml:"illiquid_volume_z"`
	} `yaml:"regime"`
	Ensemble struct {
		ModelsPath        string  `yaml:"models_path"`
		MinResponders     int     `yaml:"min_responders"`
		OutOfRegimeFactor float64 `yaml:"out_of_regime_factor"`
		SizeScale         float64 `yaml:"size_scale"`
	} `yaml:"ensemble"`
	Risk struct {
		MaxPerInstrument float64  `yaml:"max_per_instrument"`
		MaxExposure      float64  `yaml:"max_exposure"`
		MaxDrawdown      float64  `yaml:"max_drawdown"`
		Blocked          []string `yaml:"blocked"`
		InitialEquity    float64  `yaml:"initial_equity"`
	} `yaml:"risk"`
	Engine struct {
		CycleBudget     Duration `yaml:"cycle_budget"`
		CheckpointEvery int      `yaml:"checkpoint_every"`
		// ReliabilityHalfLife is the number of graded outcomes after which
		// an old reliability observation loses half its influence.
		ReliabilityHalfLife float64 `yaml:"reliability_half_life"`
		ReliabilityPrior    float64 `yaml:"reliability_prior"`
		OutcomeEpsilon      float64 `yaml:"outcome_epsilon"`
	} `yaml:"engine"`
	Advisory struct {
		BaseURL    string        `yaml:"base_url"`
		Timeout    Duration `yaml:"timeout"`
		RatePerSec float64       `yaml:"rate_per_sec"`
		Burst      float64       `yaml:"burst"`
		CacheTTL   Duration `yaml:"cache_ttl"`
	} `yaml:"advisory"`
	Backtest struct {
		HistoryBackend string        `yaml:"history_backend"` // sqlite | clickhouse
		SQLitePath     string        `yaml:"sqlite_path"`
		OutDir         string        `yaml:"out_dir"`
		Workers        int           `yaml:"workers"`
		QueueSize      int           `yaml:"queue_size"`
		RetryLimit     int           `yaml:"retry_limit"`
		RetryDelay     Duration `yaml:"retry_delay"`
	} `yaml:"backtest"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	c.Path = path
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Feed.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_SIGNALS_TOPIC"); v != "" {
		c.Kafka.SignalsTopic = v
	}
	if v := os.Getenv("ADVISORY_URL"); v != "" {
		c.Advisory.BaseURL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("feed.symbols cannot be empty")
	}
	if c.Ensemble.ModelsPath == "" {
		return fmt.Errorf("ensemble.models_path is required")
	}
	if c.Kafka.SignalsTopic == "" {
		return fmt.Errorf("kafka.signals_topic is required")
	}
	switch c.Backtest.HistoryBackend {
	case "", "sqlite", "clickhouse":
	default:
		return fmt.Errorf("backtest.history_backend must be 'sqlite' or 'clickhouse', got '%s'", c.Backtest.HistoryBackend)
	}
	return nil
}
