package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/tailscale/hujson"

	"github.com/calvinalkan/envprop/envblock"
	"github.com/calvinalkan/envprop/launch"
)

var (
	// ErrDuplicateConfigFiles is returned when both .json and .jsonc config files exist.
	ErrDuplicateConfigFiles = errors.New("duplicate config files")
	// ErrInvalidKey is returned when the override key is empty or contains '=' or NUL.
	ErrInvalidKey = errors.New("invalid override key")
)

var validate = validator.New()

// Default override entry.
const (
	defaultKey   = "TMPDIR"
	defaultValue = "/tmp/other-tmp-dir"
)

// defaultChildren is the launch list used when neither config nor arguments
// name any programs. Each entry observes the duplicated key a different way.
var defaultChildren = []launch.Descriptor{
	{Program: "print_all_tmpdir", Label: ""},
	{Program: "print_tmpdir.py", Label: "print(os.environ['TMPDIR'])"},
	{Program: "echo_tmpdir.sh", Label: "echo $TMPDIR"},
	{Program: "getenv_tmpdir", Label: `getenv("TMPDIR")`},
	{Program: "run_print_all_tmpdir.sh", Label: "calling print_all_tmpdir"},
	{Program: "exec_print_all_tmpdir.sh", Label: "exec-ing print_all_tmpdir"},
	{Program: "env_grep_tmpdir.sh", Label: "env | grep tmpdir"},
	{Program: "run_env.py", Label: "subprocess.run('/usr/bin/env')"},
	{Program: "run_print_all_tmpdir.py", Label: "subprocess.run('./print_all_tmpdir'"},
}

// Config holds the application configuration.
type Config struct {
	Key      string              `json:"key,omitempty"`
	Value    *string             `json:"value,omitempty"`
	EnvFiles []string            `json:"env_files,omitempty"`
	Children []launch.Descriptor `json:"children,omitempty" validate:"omitempty,dive"`
	Summary  *bool               `json:"summary,omitempty"`
	Strict   *bool               `json:"strict,omitempty"`

	// Resolved (not serialized)
	EffectiveCwd string   `json:"-"`
	LoadedFiles  []string `json:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Key:     defaultKey,
		Value:   stringPtr(defaultValue),
		Summary: boolPtr(false),
		Strict:  boolPtr(false),
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func stringPtr(s string) *string {
	return &s
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if !envblock.ValidKey(c.Key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, c.Key)
	}

	err := validate.Struct(c)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// Descriptors returns the launch list: programs from args when given,
// otherwise the configured children, otherwise the default list.
func (c *Config) Descriptors(args []string) []launch.Descriptor {
	if len(args) > 0 {
		out := make([]launch.Descriptor, 0, len(args))
		for _, program := range args {
			out = append(out, launch.Descriptor{Program: program})
		}

		return out
	}

	if len(c.Children) > 0 {
		return c.Children
	}

	return defaultChildren
}

// ResolvedEnvFiles returns EnvFiles with relative paths resolved against
// the effective working directory.
func (c *Config) ResolvedEnvFiles() []string {
	out := make([]string, 0, len(c.EnvFiles))

	for _, p := range c.EnvFiles {
		if !filepath.IsAbs(p) {
			p = filepath.Join(c.EffectiveCwd, p)
		}

		out = append(out, p)
	}

	return out
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride string   // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string   // --config flag value
	Env             []string // environment block (for XDG_CONFIG_HOME and HOME)
}

// LoadConfig loads configuration with the following precedence (later overrides earlier):
//  1. Built-in defaults
//  2. Global config: $XDG_CONFIG_HOME/envprop/config.json or config.jsonc
//     (defaults to ~/.config/envprop/) - always loaded if exists
//  3. Project config OR --config path (not both):
//     - Without --config: .envprop.json or .envprop.jsonc in workDir
//     - With --config: uses that path instead of project config
//
// Both .json and .jsonc files support comments via tailscale/hujson.
// If both .json and .jsonc exist at the same location, it's an error.
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	if !filepath.IsAbs(workDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}

		workDir = filepath.Join(cwd, workDir)
	}

	cfg := DefaultConfig()

	globalConfigBasePath, err := getUserConfigBasePath(input.Env)
	if err != nil {
		return Config{}, err
	}

	if globalConfigBasePath != "" {
		cfg, err = mergeConfigFile(cfg, globalConfigBasePath)
		if err != nil {
			return Config{}, err
		}
	}

	if input.ConfigPath != "" {
		configPath := input.ConfigPath
		if !filepath.IsAbs(configPath) {
			configPath = filepath.Join(workDir, configPath)
		}

		explicitCfg, err := loadConfigFile(configPath)
		if err != nil {
			return Config{}, err
		}

		cfg = mergeConfigs(&cfg, &explicitCfg)
		cfg.LoadedFiles = append(cfg.LoadedFiles, configPath)
	} else {
		cfg, err = mergeConfigFile(cfg, filepath.Join(workDir, ".envprop"))
		if err != nil {
			return Config{}, err
		}
	}

	cfg.EffectiveCwd = workDir

	return cfg, nil
}

// mergeConfigFile merges the config at basePath(.json|.jsonc) into cfg.
// A missing file is not an error.
func mergeConfigFile(cfg Config, basePath string) (Config, error) {
	path, err := findConfigFile(basePath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	if err != nil {
		return Config{}, err
	}

	fileCfg, err := loadConfigFile(path)
	if err != nil {
		return Config{}, err
	}

	merged := mergeConfigs(&cfg, &fileCfg)
	merged.LoadedFiles = append(merged.LoadedFiles, path)

	return merged, nil
}

// findConfigFile finds a config file at basePath with a .json or .jsonc
// extension and returns an error if both exist.
func findConfigFile(basePath string) (string, error) {
	jsonPath := basePath + ".json"
	jsoncPath := basePath + ".jsonc"

	jsonExists, err := fileExists(jsonPath)
	if err != nil {
		return "", err
	}

	jsoncExists, err := fileExists(jsoncPath)
	if err != nil {
		return "", err
	}

	switch {
	case jsonExists && jsoncExists:
		return "", fmt.Errorf("%w: both %s and %s exist; remove one", ErrDuplicateConfigFiles, jsonPath, jsoncPath)
	case jsonExists:
		return jsonPath, nil
	case jsoncExists:
		return jsoncPath, nil
	}

	return "", os.ErrNotExist
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("checking file %s: %w", path, err)
	}

	return !info.IsDir(), nil
}

// loadConfigFile loads and parses a JSON/JSONC config file.
func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// mergeConfigs merges override into base, with override taking precedence.
// Empty/zero values in override do not override base values.
func mergeConfigs(base, override *Config) Config {
	result := *base

	if override.Key != "" {
		result.Key = override.Key
	}

	if override.Value != nil {
		result.Value = override.Value
	}

	if len(override.EnvFiles) > 0 {
		result.EnvFiles = override.EnvFiles
	}

	if len(override.Children) > 0 {
		result.Children = override.Children
	}

	if override.Summary != nil {
		result.Summary = override.Summary
	}

	if override.Strict != nil {
		result.Strict = override.Strict
	}

	return result
}

// getUserConfigBasePath returns the user config base path (without extension).
// Reads XDG_CONFIG_HOME and HOME from the given block instead of os.Getenv().
func getUserConfigBasePath(env []string) (string, error) {
	if xdg, ok := envblock.First(env, "XDG_CONFIG_HOME"); ok && xdg != "" {
		return filepath.Join(xdg, "envprop", "config"), nil
	}

	home, ok := envblock.First(env, "HOME")
	if !ok || home == "" {
		var err error

		home, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
	}

	return filepath.Join(home, ".config", "envprop", "config"), nil
}
