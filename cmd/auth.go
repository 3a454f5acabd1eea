package cmd

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/api"
	"github.com/spigell/hr-pilot/internal/recruiting"
	"github.com/spigell/hr-pilot/internal/secrets"
	"github.com/spigell/hr-pilot/internal/session"
)

var loginCmd = &cobra.Command{
	Use:         "login",
	Short:       "Log in and store the session token",
	Annotations: page(api.PageLogin),
	Run: func(cmd *cobra.Command, _ []string) {
		a := setup(cmd)

		email, err := promptValue("Email", a.config.Email, validateEmail)
		if err != nil {
			a.logger.Fatal("reading email", zap.Error(err))
		}

		password, err := secrets.Resolve(secrets.Source{Name: "password", File: a.config.PasswordFile}, os.Stdin, os.Stderr)
		if err != nil {
			a.logger.Fatal("reading password", zap.Error(err))
		}

		token, err := a.client.Login(cmd.Context(), email, password)
		if err != nil {
			a.fatal("login failed", err)
		}

		a.logger.Info("logged in", zap.String("email", email))
		a.print(token, func(w io.Writer) {
			renderFields(w, "Email", email, "Token type", token.TokenType)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:         "logout",
	Short:       "Forget the stored session token",
	Annotations: map[string]string{quietRedirectAnnotation: "true"},
	Run: func(cmd *cobra.Command, _ []string) {
		a := setup(cmd)

		if err := a.client.Logout(); err != nil {
			a.logger.Fatal("clearing session", zap.Error(err))
		}

		a.logger.Info("logged out")
	},
}

var registerCmd = &cobra.Command{
	Use:         "register",
	Short:       "Create a recruiter account",
	Annotations: page(api.PageRegister),
	Run: func(cmd *cobra.Command, _ []string) {
		a := setup(cmd)

		fullName, _ := cmd.Flags().GetString("full-name")
		fullName, err := promptValue("Full name", fullName, nil)
		if err != nil {
			a.logger.Fatal("reading full name", zap.Error(err))
		}

		email, err := promptValue("Email", a.config.Email, validateEmail)
		if err != nil {
			a.logger.Fatal("reading email", zap.Error(err))
		}

		req := &recruiting.RegisterRequest{Email: email, FullName: fullName}

		if a.config.PasswordFile != "" {
			req.Password, err = secrets.Load(secrets.Source{Name: "password", File: a.config.PasswordFile})
			req.ConfirmPassword = req.Password
		} else {
			req.Password, err = secrets.Prompt(os.Stdin, os.Stderr, "Password: ")
			if err == nil {
				req.ConfirmPassword, err = secrets.Prompt(os.Stdin, os.Stderr, "Confirm password: ")
			}
		}
		if err != nil {
			a.logger.Fatal("reading password", zap.Error(err))
		}

		user, err := a.client.Register(cmd.Context(), req)
		if err != nil {
			a.fatal("registration failed", err)
		}

		a.logger.Info("account created", zap.String("hint", "run `hr-pilot login` to start a session"))
		a.print(user, func(w io.Writer) {
			renderFields(w, "ID", itoa(user.ID), "Email", user.Email, "Name", user.FullName)
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored session",
	Run: func(cmd *cobra.Command, _ []string) {
		a := setup(cmd)

		sess := a.client.API().Session()
		if !sess.Authenticated() {
			a.logger.Fatal("not logged in", zap.String("hint", "run `hr-pilot login`"))
		}

		claims, err := sess.Claims()
		if err != nil {
			a.logger.Fatal("reading session token", zap.Error(err))
		}

		status := struct {
			*session.Claims `yaml:",inline"`
			Expired         bool `json:"expired" yaml:"expired"`
		}{Claims: claims, Expired: claims.Expired(time.Now())}

		a.print(status, func(w io.Writer) {
			expires := "never"
			if !claims.ExpiresAt.IsZero() {
				expires = claims.ExpiresAt.Local().Format(time.RFC1123)
			}
			state := "active"
			if status.Expired {
				state = "expired"
			}
			renderFields(w, "User", claims.Subject, "Expires", expires, "Session", state)
		})
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, registerCmd, whoamiCmd)

	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringP("email", "e", "", "account email (prompted when empty)")
		c.Flags().String("password-file", "", "read the password from this file instead of prompting")
	}
	registerCmd.Flags().String("full-name", "", "your name (prompted when empty)")

	// Both commands share the keys, so bind on use instead of here.
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.PreRun = func(cmd *cobra.Command, _ []string) {
			viper.BindPFlag("email", cmd.Flags().Lookup("email"))
			viper.BindPFlag("password-file", cmd.Flags().Lookup("password-file"))
		}
	}
}

// promptValue returns value when set and otherwise asks for it.
func promptValue(label, value string, validate promptui.ValidateFunc) (string, error) {
	if value = strings.TrimSpace(value); value != "" {
		if validate != nil {
			if err := validate(value); err != nil {
				return "", err
			}
		}
		return value, nil
	}

	prompt := promptui.Prompt{Label: label, Validate: validate}
	value, err := prompt.Run()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(value), nil
}

func validateEmail(input string) error {
	input = strings.TrimSpace(input)
	at := strings.Index(input, "@")
	if at <= 0 || at == len(input)-1 || strings.ContainsAny(input, " \t") {
		return errors.New("enter a valid email address")
	}
	return nil
}
