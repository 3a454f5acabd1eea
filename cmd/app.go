package cmd

import (
	"errors"
	"io"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/api"
	"github.com/spigell/hr-pilot/internal/logger"
	"github.com/spigell/hr-pilot/internal/recruiting"
	"github.com/spigell/hr-pilot/internal/session"
)

// pageAnnotation names the front-end page a command stands in for. The API
// client uses it to decide whether a 401 ends the session.
const pageAnnotation = "page"

// quietRedirectAnnotation turns off redirect hints for commands that redirect
// on purpose, like logout.
const quietRedirectAnnotation = "quiet-redirect"

const (
	pageVacancies  = "vacancies.html"
	pageCandidates = "candidates.html"
	pageChat       = "chat.html"
	pageAnalytics  = "analytics.html"
	pageSettings   = "settings.html"
)

// application is what every command that talks to the backend needs.
type application struct {
	config   *Config
	logger   *zap.Logger
	location *api.Location
	client   *recruiting.Client
	out      *printer
}

func page(name string) map[string]string {
	return map[string]string{pageAnnotation: name}
}

func setup(cmd *cobra.Command) *application {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	out, err := newPrinter(config.Output, cmd.OutOrStdout())
	if err != nil {
		logger.Fatal("preparing output", zap.Error(err))
	}

	path := config.SessionFile
	if path == "" {
		path = session.DefaultPath()
	}

	sess, err := session.Open(session.NewFileStore(path))
	if err != nil {
		logger.Fatal("opening session", zap.Error(err), zap.String("path", path))
	}

	location := newLocation(cmd, logger)

	apiClient := api.New(sess, location, logger)
	if config.APIURL != "" {
		apiClient.APIURL = config.APIURL
	}
	if config.UserAgent != "" {
		apiClient.UserAgent = config.UserAgent
	}

	logger.Debug("starting the hr-pilot",
		zap.String("version", version),
		zap.String("api_url", apiClient.APIURL),
		zap.String("page", location.CurrentPage()),
		zap.String("session_file", path),
	)

	return &application{
		config:   config,
		logger:   logger,
		location: location,
		client:   recruiting.New(apiClient, logger),
		out:      out,
	}
}

// newLocation starts at the page cmd is annotated with, or the dashboard, and
// turns redirects into hints.
func newLocation(cmd *cobra.Command, logger *zap.Logger) *api.Location {
	current := cmd.Annotations[pageAnnotation]
	if current == "" {
		current = api.PageDashboard
	}

	location := api.NewLocation(current)
	if cmd.Annotations[quietRedirectAnnotation] != "" {
		return location
	}

	location.OnRedirect = func(target string) {
		switch target {
		case api.PageLogin:
			logger.Warn("you have been logged out", zap.String("hint", "run `hr-pilot login`"))
		case api.PageLimitReached:
			logger.Warn("resume limit reached", zap.String("hint", "run `hr-pilot subscription` to see your plan"))
		default:
			logger.Debug("redirected", zap.String("page", target))
		}
	}

	return location
}

// fatal logs err and exits. Missing or rejected sessions get a login hint.
func (a *application) fatal(msg string, err error) {
	fields := []zap.Field{zap.Error(err)}

	var reqErr *api.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode != 0 {
		fields = append(fields, zap.Int("status", reqErr.StatusCode))
	}

	if errors.Is(err, api.ErrUnauthorized) && !a.client.API().Session().Authenticated() {
		fields = append(fields, zap.String("hint", "run `hr-pilot login` first"))
	}

	a.logger.Fatal(msg, fields...)
}

// print renders v and exits on write errors.
func (a *application) print(v any, text func(w io.Writer)) {
	if err := a.out.print(v, text); err != nil {
		a.logger.Fatal("writing output", zap.Error(err))
	}
}
