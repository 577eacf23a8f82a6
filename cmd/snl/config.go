package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Gundoganfa/SomeNiceLinks/internal/auth"
)

const (
	configFileName = ".snl"
	configFileType = "yaml"

	cfgKeyServerURL         = "server_url"
	cfgKeyToken             = "token"
	cfgKeyDataDir           = "data_dir"
	cfgKeyDefaultsFile      = "defaults_file"
	cfgKeyLogLevel          = "log_level"
	cfgKeyPrettyLog         = "pretty_log"
	cfgKeyDeltaSyncDelay    = "delta_sync_delay"
	cfgKeyDeltaSyncInterval = "delta_sync_interval"
	cfgKeyRequestTimeout    = "request_timeout"
	cfgKeyJWTSecret         = "jwt_secret"
	cfgKeyJWTIssuer         = "jwt_issuer"
	cfgKeyJWTAudience       = "jwt_audience"
)

// loadConfig reads the client configuration. Values come from, in order of
// precedence, SNL_* environment variables, the config file and defaults.
// A missing config file is not an error.
func loadConfig(path string) (*viper.Viper, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %w", err)
	}
	v.SetDefault(cfgKeyDataDir, filepath.Join(home, ".somenicelinks"))
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyPrettyLog, true)
	v.SetDefault(cfgKeyDeltaSyncDelay, 2*time.Second)
	v.SetDefault(cfgKeyDeltaSyncInterval, 30*time.Second)
	v.SetDefault(cfgKeyRequestTimeout, 15*time.Second)
	v.SetDefault(cfgKeyJWTIssuer, auth.DefaultIssuer)
	v.SetDefault(cfgKeyJWTAudience, auth.DefaultAudience)

	v.SetEnvPrefix("SNL")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}
