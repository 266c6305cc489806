// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/hupe1980/autolabel/align"
	"github.com/hupe1980/autolabel/annotate"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the environment variables that do not follow the
// AUTOLABEL_<KEY> scheme or need validation.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"pipeline.threshold", "AUTOLABEL_PIPELINE_THRESHOLD", validateEnvThreshold},
		{"pipeline.variant", "AUTOLABEL_PIPELINE_VARIANT", validateEnvVariant},
		{"pipeline.alignment", "AUTOLABEL_PIPELINE_ALIGNMENT", validateEnvAlignment},
		{"pipeline.maxselections", "AUTOLABEL_PIPELINE_MAXSELECTIONS", validateEnvNonNegativeInt},
		{"debug", "AUTOLABEL_DEBUG", validateEnvBool},

		// Standard AWS and MinIO variables
		{"storage.region", "AWS_REGION", nil},
		{"storage.endpoint", "AWS_ENDPOINT_URL_S3", nil},
		{"storage.minio.accesskey", "MINIO_ACCESS_KEY", nil},
		{"storage.minio.secretkey", "MINIO_SECRET_KEY", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		// Keep AUTOLABEL_<KEY> working alongside the alias.
		envs := []string{strings.ToUpper(EnvPrefix + "_" + strings.ReplaceAll(binding.ConfigKey, ".", "_"))}
		if binding.EnvVar != envs[0] {
			envs = append(envs, binding.EnvVar)
		}

		if err := v.BindEnv(append([]string{binding.ConfigKey}, envs...)...); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		for _, env := range envs {
			if value := os.Getenv(env); value != "" {
				if err := binding.Validate(value); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", env, value, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be a boolean")
	}
	return nil
}

func validateEnvThreshold(value string) error {
	t, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if t < 0 || t > 1 {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validateEnvVariant(value string) error {
	_, err := annotate.ParseVariant(value)
	return err
}

func validateEnvAlignment(value string) error {
	_, err := align.ParseMode(value)
	return err
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return bindEnvVars(v)
}
