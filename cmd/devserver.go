package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/devserver"
	"github.com/spigell/hr-pilot/internal/logger"
)

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run an in-memory backend for local development and demos",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
		if err != nil {
			log.Fatalf("creating a logger: %s", err)
		}

		config, err := getConfig()
		if err != nil {
			logger.Fatal("getting a config", zap.Error(err))
		}

		srv := devserver.New(*config.DevServer, logger)

		email, _ := cmd.Flags().GetString("user")
		if email != "" {
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				logger.Fatal("--password is required with --user")
			}
			user, err := srv.AddUser(email, password, "")
			if err != nil {
				logger.Fatal("seeding user", zap.Error(err))
			}
			logger.Info("seeded user", zap.String("email", user.Email), zap.Int("id", user.ID))
		}

		addr, _ := cmd.Flags().GetString("addr")
		if err := srv.Run(cmd.Context(), addr); err != nil {
			logger.Fatal("dev server failed", zap.Error(err))
		}

		logger.Info("dev server stopped")
	},
}

func init() {
	rootCmd.AddCommand(devServerCmd)

	flags := devServerCmd.Flags()
	flags.String("addr", "127.0.0.1:8000", "listen address")
	flags.String("user", "", "create this account on start")
	flags.String("password", "", "password of the --user account")
	flags.Int("resume-limit", 0, "resumes each account may upload (default 5)")
	flags.Duration("token-ttl", 0, "access token lifetime (default 60m)")

	viper.BindPFlag("dev-server.resume-limit", flags.Lookup("resume-limit"))
	viper.BindPFlag("dev-server.token-ttl", flags.Lookup("token-ttl"))
}
