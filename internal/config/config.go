package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the gateway, grouped by
// concern: store connection, pipeline, LLM, RPC, and optional tracing.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	LLM      LLMConfig      `yaml:"llm"`
	RPC      RPCConfig      `yaml:"rpc"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// StoreConfig configures the graph store connection.
type StoreConfig struct {
	URI            string        `yaml:"uri"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	Database       string        `yaml:"database"`
	MaxPoolSize    int           `yaml:"max_pool_size"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
}

// PipelineConfig configures the indexing pipeline.
type PipelineConfig struct {
	MaxWorkers   int    `yaml:"max_workers"`
	BatchSize    int    `yaml:"batch_size"`
	RepositoryID string `yaml:"repository_id"`
}

// LLMConfig configures the query translator's chat-completion client.
type LLMConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	Temperature   float32       `yaml:"temperature"`
	MaxTokens     int           `yaml:"max_tokens"`
	PromptVariant string        `yaml:"prompt_template"`
	Timeout       time.Duration `yaml:"timeout"`
}

// RPCConfig configures the tool-dispatcher RPC surface.
type RPCConfig struct {
	ListenAddr           string        `yaml:"listen_addr"`
	RowCapDefault        int           `yaml:"row_cap_default"`
	RowCapAbsolute       int           `yaml:"row_cap_absolute"`
	RateLimitRPM         int           `yaml:"rate_limit_rpm"`
	RateLimitBurst       int           `yaml:"rate_limit_burst"`
	RateLimitRedisAddr   string        `yaml:"rate_limit_redis_addr"`
	SessionDBPath        string        `yaml:"session_db_path"`
	PathSanitizerBaseDir string        `yaml:"path_sanitizer_base_dir"`
	ShutdownGrace        time.Duration `yaml:"shutdown_grace"`
}

// TracingConfig configures the optional tracer; the collector itself
// is an external collaborator.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			URI:            "bolt://localhost:7687",
			User:           "neo4j",
			Database:       "neo4j",
			MaxPoolSize:    50,
			ConnectTimeout: 10 * time.Second,
			QueryTimeout:   30 * time.Second,
		},
		Pipeline: PipelineConfig{
			MaxWorkers: 4,
			BatchSize:  100,
		},
		LLM: LLMConfig{
			Model:         "gpt-4o-mini",
			Temperature:   0.0,
			MaxTokens:     800,
			PromptVariant: "default",
			Timeout:       20 * time.Second,
		},
		RPC: RPCConfig{
			ListenAddr:     ":8085",
			RowCapDefault:  100,
			RowCapAbsolute: 1000,
			RateLimitRPM:   100,
			RateLimitBurst: 10,
			SessionDBPath:  filepath.Join(".", "graphrag-sessions.db"),
			ShutdownGrace:  5 * time.Second,
		},
		Tracing: TracingConfig{
			ServiceName: "graphrag-gateway",
		},
	}
}

// Load loads configuration from an optional YAML file layered under
// environment variables (GRAPHRAG_* prefix) and .env files.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("store", cfg.Store)
	v.SetDefault("pipeline", cfg.Pipeline)
	v.SetDefault("llm", cfg.LLM)
	v.SetDefault("rpc", cfg.RPC)
	v.SetDefault("tracing", cfg.Tracing)

	v.SetEnvPrefix("GRAPHRAG")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("graphrag")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadEnvFiles() {
	envFiles := []string{".env.local", ".env"}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// applyEnvOverrides lets a handful of well-known env vars win over the
// YAML file even when viper's automatic binding misses a nested key.
func applyEnvOverrides(cfg *Config) {
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Store.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		cfg.Store.User = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		cfg.Store.Password = pass
	}
	if db := os.Getenv("NEO4J_DATABASE"); db != "" {
		cfg.Store.Database = db
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if url := os.Getenv("LLM_BASE_URL"); url != "" {
		cfg.LLM.BaseURL = url
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
	if workers := os.Getenv("PIPELINE_MAX_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			cfg.Pipeline.MaxWorkers = n
		}
	}
	if batch := os.Getenv("PIPELINE_BATCH_SIZE"); batch != "" {
		if n, err := strconv.Atoi(batch); err == nil {
			cfg.Pipeline.BatchSize = n
		}
	}
	if repo := os.Getenv("PIPELINE_REPOSITORY_ID"); repo != "" {
		cfg.Pipeline.RepositoryID = repo
	}
	if addr := os.Getenv("RPC_LISTEN_ADDR"); addr != "" {
		cfg.RPC.ListenAddr = addr
	}
	if redisAddr := os.Getenv("RPC_RATE_LIMIT_REDIS_ADDR"); redisAddr != "" {
		cfg.RPC.RateLimitRedisAddr = redisAddr
	}
	if tracing := os.Getenv("TRACING_ENABLED"); tracing != "" {
		cfg.Tracing.Enabled = tracing == "true"
	}
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("store", c.Store)
	v.Set("pipeline", c.Pipeline)
	v.Set("llm", c.LLM)
	v.Set("rpc", c.RPC)
	v.Set("tracing", c.Tracing)

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
