package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Logger     Logger     `yaml:"logger"`
	HTTPClient HTTPClient `yaml:"http_client"`
	Scanner    Scanner    `yaml:"scanner"`
	Refactor   Refactor   `yaml:"refactor"`
	GitClient  GitClient  `yaml:"git_client"`
}

type Logger struct {
	Level           string `yaml:"level"`
	JSONFormat      bool   `yaml:"json_format"`
	IncludeLocation bool   `yaml:"include_location"`
}

type HTTPClient struct {
	Debug            bool            `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

type TLSClientConfig struct {
	Verify bool `yaml:"verify"`
}

type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Scanner struct {
	Threads           int      `yaml:"threads"`
	Extensions        []string `yaml:"extensions"`
	SuppressCommented bool     `yaml:"suppress_commented"`
}

type Refactor struct {
	// ProjectPrefixes lists leading path segments that may be stripped while
	// resolving a finding's file under the output root.
	ProjectPrefixes []string `yaml:"project_prefixes"`
	MarkerText      string   `yaml:"marker_text"`
}

type GitClient struct {
	Depth       int           `yaml:"depth"`
	Timeout     time.Duration `yaml:"timeout"`
	InsecureTLS bool          `yaml:"insecure_tls"`
}

// ValidateConfigPath checks the given path points at a regular file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes a YAML file into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// NewConfig loads and returns the configuration from the given path.
func NewConfig(configPath string) (*Config, error) {
	config := &Config{}

	if err := LoadYAML(configPath, &config); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns the configuration used when no config file is supplied.
func Default() *Config {
	return &Config{
		Logger: Logger{Level: "info"},
		HTTPClient: HTTPClient{
			RetryCount:       5,
			RetryWaitTime:    1 * time.Second,
			RetryMaxWaitTime: 5 * time.Second,
			Timeout:          30 * time.Second,
			TLSClientConfig:  TLSClientConfig{Verify: true},
		},
		Scanner: Scanner{
			Threads: 4,
			Extensions: []string{
				".html", ".htm", ".asp", ".aspx", ".ascx", ".cshtml",
				".php", ".jsp", ".js", ".css",
			},
		},
		GitClient: GitClient{
			Depth:   1,
			Timeout: 1 * time.Hour,
		},
	}
}
