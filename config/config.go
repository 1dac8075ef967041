package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/revelaction/nerbio/corpus"
	"github.com/revelaction/nerbio/train"
)

// bootstrap logger, used before the configured level is known
var log = logrus.New()

const (
	EnginePerceptron = "perceptron"
	EngineRemote     = "remote"
)

// Config holds the configuration of nerbio. Flags of the command line
// override its values.
type Config struct {
	Corpus CorpusConfig `mapstructure:"corpus"`
	Train  TrainConfig  `mapstructure:"train"`
	Engine EngineConfig `mapstructure:"engine"`
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`
}

type CorpusConfig struct {
	Path       string `mapstructure:"path"`
	Suffix     string `mapstructure:"suffix"`
	Null       string `mapstructure:"null"`
	ResetEmpty bool   `mapstructure:"reset_empty"`
	FlushLast  bool   `mapstructure:"flush_last"`
}

type TrainConfig struct {
	Epochs   int         `mapstructure:"epochs"`
	Dropout  float64     `mapstructure:"dropout"`
	Batch    BatchConfig `mapstructure:"batch"`
	Seed     int64       `mapstructure:"seed"`
	LogEvery int         `mapstructure:"log_every"`
	Patience int         `mapstructure:"patience"`
	MinDelta float64     `mapstructure:"min_delta"`
}

type BatchConfig struct {
	Start  float64 `mapstructure:"start"`
	Stop   float64 `mapstructure:"stop"`
	Factor float64 `mapstructure:"factor"`
}

type EngineConfig struct {
	// Kind is perceptron or remote
	Kind     string        `mapstructure:"kind"`
	URL      string        `mapstructure:"url"`
	Model    string        `mapstructure:"model"`
	RetryMax int           `mapstructure:"retry_max"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	// Path is a directory (JSON files) or a SQLite file
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	opts := corpus.DefaultOptions()
	v.SetDefault("corpus.path", "")
	v.SetDefault("corpus.suffix", opts.Suffix)
	v.SetDefault("corpus.null", opts.Null)
	v.SetDefault("corpus.reset_empty", opts.ResetEmpty)
	v.SetDefault("corpus.flush_last", opts.FlushLast)

	cfg := train.DefaultConfig()
	v.SetDefault("train.epochs", cfg.Epochs)
	v.SetDefault("train.dropout", cfg.Dropout)
	v.SetDefault("train.batch.start", cfg.Start)
	v.SetDefault("train.batch.stop", cfg.Stop)
	v.SetDefault("train.batch.factor", cfg.Factor)
	v.SetDefault("train.seed", cfg.Seed)
	v.SetDefault("train.log_every", cfg.LogEvery)
	v.SetDefault("train.patience", cfg.Patience)
	v.SetDefault("train.min_delta", cfg.MinDelta)

	v.SetDefault("engine.kind", EnginePerceptron)
	v.SetDefault("engine.url", "http://localhost:8080")
	v.SetDefault("engine.model", "")
	v.SetDefault("engine.retry_max", 3)
	v.SetDefault("engine.timeout", 5*time.Minute)

	v.SetDefault("store.path", "")
	v.SetDefault("log.level", "warn")
}

// LoadConfig loads the config file and ENV variables into a Config struct.
// With an empty configFile, nerbio.yaml is looked up in the current
// directory and its absence is not an error.
func LoadConfig(configFile string) (*Config, error) {
	// Environment variables take precedence over config file
	loadDotEnv()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("nerbio")
	}

	v.SetConfigType("yaml")

	v.SetEnvPrefix("NERBIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv loads environment variables from .env file
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Debug(".env file not found or unable to load")
	}
}

// LoaderOptions returns the corpus loader options of the config.
func (c *Config) LoaderOptions() corpus.Options {
	return corpus.Options{
		Suffix:     c.Corpus.Suffix,
		Null:       c.Corpus.Null,
		ResetEmpty: c.Corpus.ResetEmpty,
		FlushLast:  c.Corpus.FlushLast,
	}
}

// SessionConfig returns the training session config of the config.
func (c *Config) SessionConfig() train.Config {
	cfg := train.DefaultConfig()
	cfg.Epochs = c.Train.Epochs
	cfg.Dropout = c.Train.Dropout
	cfg.Start = c.Train.Batch.Start
	cfg.Stop = c.Train.Batch.Stop
	cfg.Factor = c.Train.Batch.Factor
	cfg.Seed = c.Train.Seed
	cfg.LogEvery = c.Train.LogEvery
	cfg.Patience = c.Train.Patience
	cfg.MinDelta = c.Train.MinDelta
	return cfg
}
