package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hanteikun"

	defaultPort       = 5000
	defaultMaxRetries = 2
	defaultTimeout    = 60 * time.Second
)

type Config struct {
	Server  *ServerConfig  `mapstructure:"server"`
	Line    *LineConfig    `mapstructure:"line"`
	Gemini  *GeminiConfig  `mapstructure:"gemini"`
	Session *SessionConfig `mapstructure:"session"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LineConfig struct {
	ChannelSecret     string `mapstructure:"channel-secret"`
	ChannelSecretFile string `mapstructure:"channel-secret-file"`
	ChannelToken      string `mapstructure:"channel-token"`
	ChannelTokenFile  string `mapstructure:"channel-token-file"`
}

type GeminiConfig struct {
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	MaxRetries   int           `mapstructure:"max-retries"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

type SessionConfig struct {
	// MaxTurns bounds the stored transcript length; 0 keeps it unbounded.
	MaxTurns int `mapstructure:"max-turns"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hanteikun is a LINE bot that judges job postings for black-company red flags",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	bindings := map[string]string{
		"line.channel-secret": "LINE_CHANNEL_SECRET",
		"line.channel-token":  "LINE_CHANNEL_ACCESS_TOKEN",
		"gemini.api-key":      "GEMINI_API_KEY",
		"server.port":         "PORT",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hanteikun.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Local runs keep their keys in a .env file; missing is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// The config file is optional: everything can come from environment
	// variables. A file that exists but does not parse is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	if config.Server == nil {
		config.Server = &ServerConfig{}
	}
	if config.Line == nil {
		config.Line = &LineConfig{}
	}
	if config.Gemini == nil {
		config.Gemini = &GeminiConfig{}
	}
	if config.Session == nil {
		config.Session = &SessionConfig{}
	}

	if config.Server.Port == 0 {
		config.Server.Port = defaultPort
	}
	if config.Gemini.MaxRetries == 0 {
		config.Gemini.MaxRetries = defaultMaxRetries
	}
	if config.Gemini.Timeout == 0 {
		config.Gemini.Timeout = defaultTimeout
	}

	return config, nil
}
