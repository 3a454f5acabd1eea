package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/hr-pilot/internal/devserver"
	"github.com/spigell/hr-pilot/internal/filtering"
)

const (
	app = "hr-pilot"
)

type Config struct {
	APIURL       string            `mapstructure:"api-url"`
	UserAgent    string            `mapstructure:"user-agent"`
	SessionFile  string            `mapstructure:"session-file"`
	Email        string            `mapstructure:"email"`
	PasswordFile string            `mapstructure:"password-file"`
	Output       string            `mapstructure:"output"`
	Filters      *filtering.Config `mapstructure:"filters"`
	AI           *AIConfig         `mapstructure:"ai"`
	DevServer    *devserver.Config `mapstructure:"dev-server"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Tone     string        `mapstructure:"tone"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hr-pilot is a command line client for the Nexus AI recruiting platform",
	}
)

// Execute executes the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	envs := map[string]string{
		"api-url":                 "HR_PILOT_API_URL",
		"session-file":            "HR_PILOT_SESSION_FILE",
		"email":                   "HR_PILOT_EMAIL",
		"password-file":           "HR_PILOT_PASSWORD_FILE",
		"ai.gemini.api-key-file":  "GEMINI_API_KEY_FILE",
		"dev-server.secret":       "HR_PILOT_DEV_SECRET",
		"dev-server.resume-limit": "HR_PILOT_DEV_RESUME_LIMIT",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hr-pilot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("output", "o", outputText, "output format: text, json or yaml")
	rootCmd.PersistentFlags().String("api-url", "", "backend API base url (default http://127.0.0.1:8000/api)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless it was named explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Filters == nil {
		config.Filters = &filtering.Config{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.DevServer == nil {
		config.DevServer = &devserver.Config{}
	}
	config.APIURL = strings.TrimRight(strings.TrimSpace(config.APIURL), "/")

	return config, nil
}
