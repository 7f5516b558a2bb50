package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // "mysql" (default) or "postgres"
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Inference struct {
		BaseURL string `yaml:"baseURL"`
		APIKey  string `yaml:"apiKey"`
		// Per-kind deadlines in seconds; zero means the default
		// (face 30, report 60, risk 45).
		FaceTimeoutSec   int `yaml:"faceTimeoutSec"`
		ReportTimeoutSec int `yaml:"reportTimeoutSec"`
		RiskTimeoutSec   int `yaml:"riskTimeoutSec"`
	} `yaml:"inference"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	// Auth maps API key -> user id.
	Auth struct {
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	Limits struct {
		MaxImageBytes    int64 `yaml:"maxImageBytes"`
		MaxDocumentBytes int64 `yaml:"maxDocumentBytes"`
	} `yaml:"limits"`
}

// Load reads the yaml config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Limits.MaxImageBytes == 0 {
		c.Limits.MaxImageBytes = 10 << 20
	}
	if c.Limits.MaxDocumentBytes == 0 {
		c.Limits.MaxDocumentBytes = 20 << 20
	}
}

// Helper to build the MySQL DSN
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper to build the Postgres DSN
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

// InferenceTimeout returns the configured deadline for a kind, falling
// back to the service defaults.
func (c *Config) InferenceTimeout(kind string) time.Duration {
	var sec int
	switch kind {
	case "face":
		sec = c.Inference.FaceTimeoutSec
		if sec == 0 {
			sec = 30
		}
	case "report":
		sec = c.Inference.ReportTimeoutSec
		if sec == 0 {
			sec = 60
		}
	case "risk":
		sec = c.Inference.RiskTimeoutSec
		if sec == 0 {
			sec = 45
		}
	default:
		sec = 30
	}
	return time.Duration(sec) * time.Second
}
