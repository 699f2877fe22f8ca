// Package config provides configuration management for stackup.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration locations.
const (
	DefaultConfigDir  = ".config/stackup"
	DefaultConfigFile = "config.yaml"
)

// Sentinel errors for configuration operations.
var (
	ErrInvalidKey = errors.New("invalid configuration key")
	ErrNoEditor   = errors.New("$EDITOR is not set")
)

// validKeys is built once from Config struct reflection.
var validKeys = buildValidKeys()

// validate is the shared validator instance.
var validate = validator.New()

// Config is the full stackup configuration.
type Config struct {
	Project  ProjectConfig  `mapstructure:"project"`
	Tags     TagsConfig     `mapstructure:"tags" validate:"required"`
	Compose  ComposeConfig  `mapstructure:"compose" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Registry RegistryConfig `mapstructure:"registry"`
}

// ProjectConfig identifies the project's own service within manifests.
type ProjectConfig struct {
	// Service is the name of the project's own service; its image is built
	// locally and retagged with Version.
	Service string `mapstructure:"service"`
	// Version is the default build version tag; overridable per run.
	Version string `mapstructure:"version"`
	// BuildContext is the local image build context directory (empty
	// disables building).
	BuildContext string `mapstructure:"build_context"`
	// Dockerfile is the Dockerfile path relative to BuildContext.
	Dockerfile string `mapstructure:"dockerfile"`
}

// TagsConfig holds the custom markers recognized inside image values.
type TagsConfig struct {
	LocalBuild string `mapstructure:"local_build" validate:"required"`
	SkipPull   string `mapstructure:"skip_pull" validate:"required"`
}

// ComposeConfig holds runtime invocation configuration.
type ComposeConfig struct {
	// Binary is the container runtime binary.
	Binary string `mapstructure:"binary" validate:"required"`
	// Flags are extra flags appended to compose up (see internal/flags).
	Flags map[string]any `mapstructure:"flags"`
}

// StorageConfig holds persistence locations.
type StorageConfig struct {
	// StateFile overrides the running-instance state file; empty selects
	// the platform temp directory default.
	StateFile string `mapstructure:"state_file"`
}

// RegistryConfig holds registry pre-check configuration.
type RegistryConfig struct {
	// Check enables metadata pre-checks before pulling defined images.
	Check bool `mapstructure:"check"`
	// Insecure allows HTTP (non-TLS) registry connections.
	Insecure bool `mapstructure:"insecure"`
	// CredentialService is the keyring service name for stored registry
	// credentials.
	CredentialService string `mapstructure:"credential_service"`
}

// Validate checks the configuration using struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Loader provides configuration loading and saving.
type Loader struct {
	v       *viper.Viper
	path    string
	homeDir string
}

// NewLoader creates a configuration loader rooted at the user's home
// directory.
func NewLoader() (*Loader, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}
	return newLoaderAt(filepath.Join(home, DefaultConfigDir, DefaultConfigFile), home), nil
}

func newLoaderAt(configPath, home string) *Loader {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("STACKUP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// BindEnv only fails when called with zero arguments.
	//nolint:errcheck
	v.BindEnv("project.service", "STACKUP_PROJECT_SERVICE")
	//nolint:errcheck
	v.BindEnv("project.version", "STACKUP_PROJECT_VERSION")
	//nolint:errcheck
	v.BindEnv("compose.binary", "STACKUP_COMPOSE_BINARY")
	//nolint:errcheck
	v.BindEnv("storage.state_file", "STACKUP_STATE_FILE")

	l := &Loader{v: v, path: configPath, homeDir: home}
	l.setDefaults()
	return l
}

// setDefaults sets all default configuration values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("project.service", "")
	l.v.SetDefault("project.version", "latest")
	l.v.SetDefault("project.build_context", "")
	l.v.SetDefault("project.dockerfile", "")
	l.v.SetDefault("tags.local_build", "#local-build")
	l.v.SetDefault("tags.skip_pull", "#skip-pull")
	l.v.SetDefault("compose.binary", "docker")
	l.v.SetDefault("compose.flags", map[string]any{})
	l.v.SetDefault("storage.state_file", "")
	l.v.SetDefault("registry.check", false)
	l.v.SetDefault("registry.insecure", false)
	l.v.SetDefault("registry.credential_service", "stackup")
}

// Load reads the configuration file, creating it with defaults when absent.
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		if err := l.createDefault(); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Storage.StateFile = l.expandPath(cfg.Storage.StateFile)
	cfg.Project.BuildContext = l.expandPath(cfg.Project.BuildContext)

	return &cfg, nil
}

// Path returns the configuration file path.
func (l *Loader) Path() string {
	return l.path
}

// Get returns a configuration value by dot-notation key.
func (l *Loader) Get(key string) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return l.v.Get(key), nil
}

// Set sets a configuration value by dot-notation key and writes the file.
func (l *Loader) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	l.v.Set(key, value)
	return l.v.WriteConfig()
}

// createDefault writes the default configuration file.
func (l *Loader) createDefault() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return l.v.SafeWriteConfigAs(l.path)
}

// expandPath replaces a leading ~ with the home directory.
func (l *Loader) expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(l.homeDir, path[2:])
	}
	if path == "~" {
		return l.homeDir
	}
	return path
}

// ValidateKey checks if a key is a valid configuration key.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if validKeys[key] {
		return nil
	}
	// compose.flags.<name> carries arbitrary flag names.
	if strings.HasPrefix(key, "compose.flags.") {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidKey, key)
}

// buildValidKeys derives the set of valid keys from the Config struct.
func buildValidKeys() map[string]bool {
	keys := make(map[string]bool)
	addKeysFromType(reflect.TypeOf(Config{}), "", keys)
	return keys
}

func addKeysFromType(t reflect.Type, prefix string, keys map[string]bool) {
	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		keys[key] = true

		if field.Type.Kind() == reflect.Struct {
			addKeysFromType(field.Type, key, keys)
		}
	}
}
