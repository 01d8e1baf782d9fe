package config

import (
	"errors"
	"openpka/persistence"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const EnvPrefix = "OPENPKA"

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Search   SearchConfig   `mapstructure:"search"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Admin    AdminConfig    `mapstructure:"admin"`

	// Timezone is the IANA zone deciding which calendar day relations become effective on.
	Timezone string `mapstructure:"timezone"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	Driver  string `mapstructure:"driver"`
	Args    string `mapstructure:"args"`
	Migrate bool   `mapstructure:"migrate"`
}

type SearchConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	URLs    []string `mapstructure:"urls"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AdminConfig registers a static token carrying system:admin at startup, skipped when Token is empty.
type AdminConfig struct {
	Token string `mapstructure:"token"`
	Name  string `mapstructure:"name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.address", ":80")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", persistence.DriverMysql)
	v.SetDefault("database.args", "")
	v.SetDefault("database.migrate", true)
	v.SetDefault("search.enabled", false)
	v.SetDefault("search.urls", []string{})
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("admin.token", "")
	v.SetDefault("admin.name", "admin")
	v.SetDefault("timezone", "UTC")
}

// Load reads config.yaml from path (a directory or a file) and applies OPENPKA_* overrides,
// e.g. OPENPKA_DATABASE_ARGS. DB_DRIVER and DB_DRIVER_ARGS are honoured as well.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if info, err := os.Stat(path); path != "" && err == nil && !info.IsDir() {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if path != "" {
			v.AddConfigPath(path)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.driver", EnvPrefix+"_DATABASE_DRIVER", "DB_DRIVER"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("database.args", EnvPrefix+"_DATABASE_ARGS", "DB_DRIVER_ARGS"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		logrus.Info("no config file found, using defaults and environment")
	} else {
		logrus.Infof("loaded config file %s", v.ConfigFileUsed())
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) DatabaseConfig() (*persistence.DatabaseConfig, error) {
	return persistence.NewDatabaseConfig(c.Database.Driver, c.Database.Args)
}
