package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Classifier struct {
		BaseURL        string `yaml:"baseUrl"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"classifier"`

	// API key per caller, validated by the auth middleware
	APIKeys map[string]string `yaml:"apiKeys"`

	Workflow struct {
		// first_available | round_robin
		AssignmentPolicy string `yaml:"assignmentPolicy"`
	} `yaml:"workflow"`

	Surveillance struct {
		// outbreak baseline: how many trailing windows to average, and the
		// multiplier above baseline that raises a facility flag
		BaselineWindows   int     `yaml:"baselineWindows"`
		OutbreakThreshold float64 `yaml:"outbreakThreshold"`
	} `yaml:"surveillance"`
}

// Load baca file config.yaml
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
	if c.Classifier.TimeoutSeconds == 0 {
		c.Classifier.TimeoutSeconds = 60
	}
	if c.Workflow.AssignmentPolicy == "" {
		c.Workflow.AssignmentPolicy = "first_available"
	}
	if c.Surveillance.BaselineWindows == 0 {
		c.Surveillance.BaselineWindows = 3
	}
	if c.Surveillance.OutbreakThreshold == 0 {
		c.Surveillance.OutbreakThreshold = 2.0
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the lib/pq connection string
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}
