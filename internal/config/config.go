// Package config loads wheelfix settings from wheelfix.toml, WHEELFIX_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/matzehuels/wheelfix/pkg/delocate"
	"github.com/matzehuels/wheelfix/pkg/errors"
	"github.com/matzehuels/wheelfix/pkg/macho"
)

// EnvPrefix prefixes every environment variable read by wheelfix.
const EnvPrefix = "WHEELFIX"

// Config holds the settings shared by all commands.
type Config struct {
	LibSubdir       string   `mapstructure:"lib_sdir"`
	ExcludePrefixes []string `mapstructure:"exclude_prefixes"`
	Extensions      []string `mapstructure:"extensions"`
	InstallNameTool string   `mapstructure:"install_name_tool"`
	NoCache         bool     `mapstructure:"no_cache"`
	Verbose         bool     `mapstructure:"verbose"`
}

// New returns a viper instance reading cfgFile, or wheelfix.toml from the
// working directory and $XDG_CONFIG_HOME/wheelfix when cfgFile is empty.
// A missing default config file is not an error.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("wheelfix")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config")
		}
	}
	return v, nil
}

// Load applies defaults to v, decodes it and validates the result.
func Load(v *viper.Viper) (Config, error) {
	v.SetDefault("lib_sdir", delocate.DefaultLibSubdir)
	v.SetDefault("exclude_prefixes", []string{})
	v.SetDefault("extensions", delocate.DefaultExtensions)
	v.SetDefault("install_name_tool", macho.DefaultInstallNameTool)
	v.SetDefault("no_cache", false)
	v.SetDefault("verbose", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if err := errors.ValidateLibSubdir(c.LibSubdir); err != nil {
		return err
	}
	for _, p := range c.ExcludePrefixes {
		if err := errors.ValidatePrefix(p); err != nil {
			return err
		}
	}
	for _, e := range c.Extensions {
		if err := errors.ValidateExtension(e); err != nil {
			return err
		}
	}
	if c.InstallNameTool == "" {
		return errors.New(errors.ErrCodeInvalidInput, "install_name_tool must not be empty")
	}
	return nil
}

// LibFilter returns the binary filter for the configured extensions.
func (c Config) LibFilter() delocate.LibFilter {
	return delocate.ExtensionFilter(c.Extensions...)
}

// CopyFilter returns the copy filter excluding system and configured
// prefixes.
func (c Config) CopyFilter() delocate.CopyFilter {
	return delocate.ExcludePrefixes(c.ExcludePrefixes...)
}

// WheelOptions returns delocation options for the configuration.
func (c Config) WheelOptions() delocate.WheelOptions {
	return delocate.WheelOptions{
		LibSubdir:  c.LibSubdir,
		LibFilter:  c.LibFilter(),
		CopyFilter: c.CopyFilter(),
	}
}

// configDir returns $XDG_CONFIG_HOME/wheelfix, defaulting to ~/.config.
func configDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "wheelfix"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "wheelfix"), nil
}
