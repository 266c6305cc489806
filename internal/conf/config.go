// Package conf loads the settings of the autolabel command.
//
// Settings are read, in increasing precedence, from defaults, an optional
// config.yaml, AUTOLABEL_* environment variables and command line flags.
package conf

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/hupe1980/autolabel/align"
	"github.com/hupe1980/autolabel/annotate"
	"github.com/hupe1980/autolabel/codec"
)

// Storage backends serving s3:// URIs.
const (
	BackendAWS   = "aws"
	BackendMinIO = "minio"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "AUTOLABEL"

// Settings is the complete configuration.
type Settings struct {
	Debug bool

	Log struct {
		JSON  bool   // log as JSON instead of text
		Level string // debug, info, warn or error
	}

	Storage struct {
		Backend           string  // aws or minio
		Region            string  // AWS region, empty for the SDK default
		Endpoint          string  // custom S3 endpoint, path style addressing
		MaxInFlight       int64   // concurrent store requests, 0 unbounded
		RequestsPerSecond float64 // store request rate, 0 unlimited
		Burst             int

		Upload struct {
			PartSize    int64
			Concurrency int
			Checksum    bool
		}

		MinIO struct {
			Endpoint  string
			AccessKey string
			SecretKey string
			Region    string
			Secure    bool
		}
	}

	Pipeline struct {
		Variant       string  // detection or classification
		Alignment     string  // filename or id, empty for the variant default
		Threshold     float64 // auto-annotation threshold
		MaxSelections int     // records routed to humans per round
		FetchWorkers  int     // concurrent prediction and image fetches
		Seed          uint64  // selection seed, 0 for a random seed
		JobType       string  // overrides the metadata type field
		Codec         string  // manifest line codec: go-json or json
	}

	Ledger struct {
		Table  string // DynamoDB table, empty disables the ledger
		Region string
	}

	Metrics struct {
		PushGateway string // Pushgateway URL
		Textfile    string // node exporter textfile path
	}
}

// New returns a viper instance with defaults and environment bindings.
func New() (*viper.Viper, error) {
	v := viper.New()
	setDefaultConfig(v)
	if err := configureEnvironmentVariables(v); err != nil {
		return nil, err
	}
	return v, nil
}

// ReadConfigFile reads path, or config.yaml from the default locations when
// path is empty. A missing default config file is not an error.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range defaultConfigPaths() {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "autolabel"))
	}
	return append(paths, "/etc/autolabel")
}

// Load unmarshals and validates the settings held by v.
func Load(v *viper.Viper) (*Settings, error) {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks value ranges and enumerations.
func (s *Settings) Validate() error {
	var errs []error

	if _, err := s.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(s.Storage.Backend) {
	case BackendAWS, BackendMinIO:
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", s.Storage.Backend))
	}
	if s.Storage.MaxInFlight < 0 {
		errs = append(errs, fmt.Errorf("storage.maxinflight must not be negative"))
	}
	if s.Storage.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("storage.requestspersecond must not be negative"))
	}

	if _, err := annotate.ParseVariant(s.Pipeline.Variant); err != nil {
		errs = append(errs, fmt.Errorf("pipeline.variant: %w", err))
	}
	if s.Pipeline.Alignment != "" {
		if _, err := align.ParseMode(s.Pipeline.Alignment); err != nil {
			errs = append(errs, fmt.Errorf("pipeline.alignment: %w", err))
		}
	}
	if s.Pipeline.Threshold < 0 || s.Pipeline.Threshold > 1 {
		errs = append(errs, fmt.Errorf("pipeline.threshold must be between 0 and 1, got %v", s.Pipeline.Threshold))
	}
	if s.Pipeline.MaxSelections < 0 {
		errs = append(errs, fmt.Errorf("pipeline.maxselections must not be negative"))
	}
	if _, err := codec.Lookup(s.Pipeline.Codec); err != nil {
		errs = append(errs, fmt.Errorf("pipeline.codec: %w", err))
	}
	if s.Pipeline.FetchWorkers < 1 {
		errs = append(errs, fmt.Errorf("pipeline.fetchworkers must be at least 1"))
	}

	return errors.Join(errs...)
}

// LogLevel parses Log.Level. Debug forces slog.LevelDebug.
func (s *Settings) LogLevel() (slog.Level, error) {
	if s.Debug {
		return slog.LevelDebug, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
