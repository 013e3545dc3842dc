// Package conf loads the server configuration from an optional TOML file
// and the environment. Environment variables, including those from an
// optional .env file, override the file.
package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

type Config struct {
	HttpAddr         string        `toml:"http_addr"`
	StoreBackend     string        `toml:"store_backend"`
	DdbTable         string        `toml:"ddb_table"`
	AwsRegion        string        `toml:"aws_region"`
	StoreMaxAttempts int           `toml:"store_max_attempts"`
	JudgeURL         string        `toml:"judge_url"`
	JudgeCallbackURL string        `toml:"judge_callback_url"`
	JudgeTimeout     time.Duration `toml:"-"`
	ResultsSqsURL    string        `toml:"results_sqs_url"`
	SourceBucket     string        `toml:"source_bucket"`
	JwtKey           string        `toml:"jwt_key"`
	Env              string        `toml:"env"`

	// signs the callback urls handed to the judge
	JudgeCallbackSecret string `toml:"judge_callback_secret"`

	// toml has no duration type
	JudgeTimeoutRaw string `toml:"judge_timeout"`
}

func defaults() Config {
	return Config{
		HttpAddr:         ":8080",
		StoreBackend:     StoreMemory,
		AwsRegion:        "eu-central-1",
		StoreMaxAttempts: 5,
		JudgeTimeoutRaw:  "1s",
		Env:              "dev",
	}
}

// Load reads the config file at path, if path is not empty, then applies
// the environment and checks required keys.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(cfg.JudgeTimeoutRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid JUDGE_TIMEOUT %q: %w", cfg.JudgeTimeoutRaw, err)
	}
	cfg.JudgeTimeout = timeout

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"HTTP_ADDR":             &c.HttpAddr,
		"STORE_BACKEND":         &c.StoreBackend,
		"DDB_TABLE":             &c.DdbTable,
		"AWS_REGION":            &c.AwsRegion,
		"JUDGE_URL":             &c.JudgeURL,
		"JUDGE_CALLBACK_URL":    &c.JudgeCallbackURL,
		"JUDGE_CALLBACK_SECRET": &c.JudgeCallbackSecret,
		"JUDGE_TIMEOUT":         &c.JudgeTimeoutRaw,
		"RESULTS_SQS_URL":       &c.ResultsSqsURL,
		"SOURCE_BUCKET":         &c.SourceBucket,
		"JWT_KEY":               &c.JwtKey,
		"ENV":                   &c.Env,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("STORE_MAX_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STORE_MAX_ATTEMPTS %q: %w", v, err)
		}
		c.StoreMaxAttempts = n
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JwtKey == "" {
		errs = append(errs, errors.New("JWT_KEY is required"))
	}
	switch c.StoreBackend {
	case StoreMemory:
	case StoreDynamoDB:
		if c.DdbTable == "" {
			errs = append(errs, errors.New("DDB_TABLE is required for the dynamodb store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	if c.JudgeURL != "" && c.JudgeCallbackURL == "" {
		errs = append(errs, errors.New("JUDGE_CALLBACK_URL is required when JUDGE_URL is set"))
	}
	if c.JudgeURL != "" && c.JudgeCallbackSecret == "" {
		errs = append(errs, errors.New("JUDGE_CALLBACK_SECRET is required when JUDGE_URL is set"))
	}
	if c.StoreMaxAttempts < 1 {
		errs = append(errs, errors.New("STORE_MAX_ATTEMPTS must be positive"))
	}
	if c.JudgeTimeout <= 0 {
		errs = append(errs, errors.New("JUDGE_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}
