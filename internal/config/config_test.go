package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, BackendRedis, cfg.Store.Backend)
				assert.Equal(t, time.Hour, cfg.Store.TTL)
				assert.Equal(t, "localhost", cfg.Redis.Host)
				assert.Equal(t, 6379, cfg.Redis.Port)
				assert.Equal(t, "job_events", cfg.RabbitMQ.Exchange)
				assert.Equal(t, "/tmp/videos", cfg.Pipeline.VideoOutputDir)
				assert.Equal(t, "http://localhost:9000", cfg.Pipeline.Transcriber.URL)
				assert.Equal(t, 5*time.Minute, cfg.Pipeline.Transcriber.Timeout)
				assert.Equal(t, "clipsight-api", cfg.App.Name)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Store:  StoreConfig{Backend: BackendMemory},
		Pipeline: PipelineConfig{
			VideoOutputDir: "/tmp/videos",
			Transcriber:    EndpointConfig{URL: "http://localhost:9000"},
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid memory config",
			mutate: func(c *Config) {},
		},
		{
			name: "valid redis config",
			mutate: func(c *Config) {
				c.Store = StoreConfig{Backend: BackendRedis, TTL: time.Hour}
				c.Redis = RedisConfig{Host: "localhost", Port: 6379}
			},
		},
		{
			name: "valid postgres config",
			mutate: func(c *Config) {
				c.Store.Backend = BackendPostgres
				c.Database = DatabaseConfig{Host: "localhost", Port: 5432, Database: "clipsight_db"}
			},
		},
		{
			name:      "invalid server port",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "unknown store backend",
			mutate:    func(c *Config) { c.Store.Backend = "etcd" },
			wantErr:   true,
			errString: "invalid store backend",
		},
		{
			name: "redis backend without host",
			mutate: func(c *Config) {
				c.Store = StoreConfig{Backend: BackendRedis, TTL: time.Hour}
			},
			wantErr:   true,
			errString: "redis host is required",
		},
		{
			name: "redis backend without ttl",
			mutate: func(c *Config) {
				c.Store = StoreConfig{Backend: BackendRedis}
				c.Redis = RedisConfig{Host: "localhost", Port: 6379}
			},
			wantErr:   true,
			errString: "store ttl",
		},
		{
			name: "postgres backend without database name",
			mutate: func(c *Config) {
				c.Store.Backend = BackendPostgres
				c.Database = DatabaseConfig{Host: "localhost", Port: 5432}
			},
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name: "rabbitmq enabled without exchange",
			mutate: func(c *Config) {
				c.RabbitMQ = RabbitMQConfig{Enabled: true, Host: "localhost", Port: 5672}
			},
			wantErr:   true,
			errString: "rabbitmq exchange is required",
		},
		{
			name:      "missing video output dir",
			mutate:    func(c *Config) { c.Pipeline.VideoOutputDir = "" },
			wantErr:   true,
			errString: "video_output_dir is required",
		},
		{
			name:      "missing transcriber url",
			mutate:    func(c *Config) { c.Pipeline.Transcriber.URL = "" },
			wantErr:   true,
			errString: "transcriber url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
