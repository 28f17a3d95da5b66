// Package config loads the archiver configuration from multiple sources:
// a .env file (environment variables), config.yaml in the working
// directory, and the environment itself. Environment variables override
// file settings.
package config

import (
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"discord-archive/utils"
)

// GuildConfig holds optional per-server settings, keyed in config.yaml by
// the server's snowflake id.
type GuildConfig struct {
	Name    string  `mapstructure:"name"`
	Exclude []int64 `mapstructure:"exclude"` // channel ids skipped during crawls
}

// Config is the resolved archiver configuration.
type Config struct {
	Token            string
	UserToken        bool
	OutputDir        string
	HistoryPageSize  int
	ReactionPageSize int
	Rate             float64
	Debug            bool
	Guilds           map[int64]GuildConfig
}

// Load reads .env, config.yaml and the environment. A missing config file
// is fine; only parse errors are fatal to startup.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		utils.Debug("config", "load", "loaded .env file")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("output_dir", ".")
	viper.SetDefault("history_page_size", 100)
	viper.SetDefault("reaction_page_size", 100)
	viper.SetDefault("rate", 2.0)
	_ = viper.BindEnv("token", "TOKEN", "DISCORD_TOKEN")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			utils.Debug("config", "load", "no config.yaml, using environment and defaults")
		} else {
			return nil, err
		}
	}

	cfg := &Config{
		Token:            viper.GetString("token"),
		UserToken:        viper.GetBool("user_token"),
		OutputDir:        viper.GetString("output_dir"),
		HistoryPageSize:  viper.GetInt("history_page_size"),
		ReactionPageSize: viper.GetInt("reaction_page_size"),
		Rate:             viper.GetFloat64("rate"),
		Debug:            viper.GetBool("debug"),
		Guilds:           make(map[int64]GuildConfig),
	}

	// Top-level numeric keys are per-server sections.
	for key, value := range viper.AllSettings() {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		var gc GuildConfig
		if err := mapstructure.Decode(value, &gc); err != nil {
			utils.Warn("config", "load", "could not decode section "+key+": "+err.Error())
			continue
		}
		cfg.Guilds[id] = gc
	}
	return cfg, nil
}
