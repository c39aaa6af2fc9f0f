package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port int
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret     string `mapstructure:"jwt_secret"`
		AdminEmail    string `mapstructure:"admin_email"`
		AdminPassword string `mapstructure:"admin_password"`
	}
	SMTP struct {
		Host     string
		Port     int
		From     string
		Username string
		Password string
	}
	Slack struct {
		Token   string
		Channel string
	}
}

// Load reads config.yaml from the working directory, falling back to
// defaults when the file is absent.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.path", "data/pulseboard.db")
	viper.SetDefault("auth.jwt_secret", "change-me")
	viper.SetDefault("auth.admin_email", "admin@pulseboard.local")
	viper.SetDefault("auth.admin_password", "admin")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.from", "Pulseboard <noreply@pulseboard.local>")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}
