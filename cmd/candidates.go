package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/ai"
	"github.com/spigell/hr-pilot/internal/ai/gemini"
	"github.com/spigell/hr-pilot/internal/filtering"
	"github.com/spigell/hr-pilot/internal/recruiting"
	"github.com/spigell/hr-pilot/internal/secrets"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var candidatesCmd = &cobra.Command{
	Use:     "candidates",
	Aliases: []string{"candidate"},
	Short:   "Upload, review and contact candidates",
}

var candidatesListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List candidates, optionally filtered",
	Annotations: page(pageCandidates),
	Run: func(cmd *cobra.Command, _ []string) {
		a := setup(cmd)
		ctx := cmd.Context()

		vacancyID, _ := cmd.Flags().GetInt("vacancy")
		candidates, err := a.client.Candidates(ctx, vacancyID)
		if err != nil {
			a.fatal("getting candidates", err)
		}

		a.logger.Debug("got candidates", zap.Int("count", candidates.Len()))

		steps := filtering.Default()
		if skip, _ := cmd.Flags().GetBool("all"); skip {
			for _, step := range steps {
				step.Disable("--all flag is set")
			}
		}

		candidates, err = filtering.Run(ctx, a.config.Filters, filtering.Deps{Logger: a.logger}, steps, candidates)
		if err != nil {
			a.logger.Fatal("filtering failed", zap.Error(err))
		}

		if viper.GetBool("debug") {
			for _, status := range filtering.Describe(steps) {
				a.logger.Debug("filter", zap.Any("status", status))
			}
		}

		if mark, _ := cmd.Flags().GetBool("mark-reviewed"); mark {
			markReviewed(a, candidates)
		}

		a.print(candidates.Items, func(w io.Writer) {
			rows := make([][]string, 0, candidates.Len())
			for _, c := range candidates.Items {
				rows = append(rows, []string{itoa(c.ID), itoa(c.VacancyID), c.Filename, c.Status, fmt.Sprintf("%.0f", c.Score), c.Recommendation})
			}
			renderTable(w, []string{"ID", "Vacancy", "File", "Status", "Score", "Recommendation"}, rows)
		})
	},
}

var candidatesGetCmd = &cobra.Command{
	Use:         "get <id>",
	Short:       "Show a candidate",
	Args:        cobra.ExactArgs(1),
	Annotations: page(pageCandidates),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(cmd)

		candidate, err := a.client.Candidate(cmd.Context(), parseID(a, args[0]))
		if err != nil {
			a.fatal("getting candidate", err)
		}

		a.print(candidate, func(w io.Writer) { renderCandidate(w, candidate) })
	},
}

var candidatesUploadCmd = &cobra.Command{
	Use:         "upload <resume-file>",
	Short:       "Upload a resume as a new candidate",
	Args:        cobra.ExactArgs(1),
	Annotations: page(pageCandidates),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(cmd)
		ctx := cmd.Context()

		vacancyID, _ := cmd.Flags().GetInt("vacancy")
		if vacancyID <= 0 {
			vacancyID = pickVacancy(ctx, a)
		}

		file, err := os.Open(args[0])
		if err != nil {
			a.logger.Fatal("opening resume", zap.Error(err))
		}
		defer file.Close()

		candidate, err := a.client.UploadResume(ctx, vacancyID, filepath.Base(args[0]), file)
		if err != nil {
			a.fatal("uploading resume", err)
		}

		a.logger.Info("resume uploaded", zap.Int("candidate_id", candidate.ID), zap.Int("vacancy_id", vacancyID))

		if analyze, _ := cmd.Flags().GetBool("analyze"); analyze {
			candidate, err = a.client.Analyze(ctx, candidate.ID)
			if err != nil {
				a.fatal("analyzing candidate", err)
			}
		}

		a.print(candidate, func(w io.Writer) { renderCandidate(w, candidate) })
	},
}

var candidatesAnalyzeCmd = &cobra.Command{
	Use:         "analyze <id>",
	Short:       "Run AI analysis of a candidate",
	Args:        cobra.ExactArgs(1),
	Annotations: page(pageCandidates),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(cmd)

		candidate, err := a.client.Analyze(cmd.Context(), parseID(a, args[0]))
		if err != nil {
			a.fatal("analyzing candidate", err)
		}

		a.print(candidate, func(w io.Writer) { renderCandidate(w, candidate) })
	},
}

var candidatesOutreachCmd = &cobra.Command{
	Use:         "outreach <id>",
	Short:       "Draft and send an outreach message",
	Args:        cobra.ExactArgs(1),
	Annotations: page(pageCandidates),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(cmd)
		ctx := cmd.Context()
		flags := cmd.Flags()

		id := parseID(a, args[0])
		message, _ := flags.GetString("message")

		if strings.TrimSpace(message) == "" {
			local, _ := flags.GetBool("local-draft")
			if local {
				message = draftLocally(ctx, a, id, flags.Lookup("instructions").Value.String())
			} else {
				draft, err := a.client.GenerateOutreach(ctx, id)
				if err != nil {
					a.fatal("generating outreach", err)
				}
				message = draft.Message
			}
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n%s\n\n", headerStyle.Render("Message:"), message)

		if yes, _ := flags.GetBool("yes"); !yes {
			confirm := promptui.Select{
				Label: "Send this message?",
				Items: []string{PromptYes, PromptNo},
			}
			_, answer, err := confirm.Run()
			if err != nil {
				a.logger.Fatal("exiting", zap.Error(err))
			}
			if answer != PromptYes {
				a.logger.Info("exiting", zap.String("reason", "got no from prompt"))
				return
			}
		}

		result, err := a.client.SendOutreach(ctx, id, message)
		if err != nil {
			a.fatal("sending outreach", err)
		}

		if result.Mock {
			a.logger.Info("outreach recorded", zap.Int("candidate_id", id), zap.String("note", "delivery was simulated by the backend"))
		} else {
			a.logger.Info("outreach sent", zap.Int("candidate_id", id))
		}
	},
}

func init() {
	rootCmd.AddCommand(candidatesCmd)
	candidatesCmd.AddCommand(candidatesListCmd, candidatesGetCmd, candidatesUploadCmd, candidatesAnalyzeCmd, candidatesOutreachCmd)

	list := candidatesListCmd.Flags()
	list.Int("vacancy", 0, "only candidates of this vacancy")
	list.Float64("min-score", 0, "hide candidates scored below this value (0-100)")
	list.StringSlice("status", nil, "only candidates in these statuses, e.g. NEW,ANALYZED")
	list.String("reviewed-file", "", "JSON file of already reviewed candidates to hide")
	list.Bool("mark-reviewed", false, "append the listed candidates to the reviewed file")
	list.Bool("all", false, "disable every filter")

	viper.BindPFlag("filters.min-score", list.Lookup("min-score"))
	viper.BindPFlag("filters.statuses", list.Lookup("status"))
	viper.BindPFlag("filters.reviewed-file", list.Lookup("reviewed-file"))

	candidatesUploadCmd.Flags().Int("vacancy", 0, "vacancy to attach the candidate to (picked interactively when empty)")
	candidatesUploadCmd.Flags().Bool("analyze", false, "run AI analysis right after the upload")

	outreach := candidatesOutreachCmd.Flags()
	outreach.StringP("message", "m", "", "send this text instead of a generated draft")
	outreach.Bool("local-draft", false, "draft the message locally with Gemini (needs ai.enabled)")
	outreach.String("instructions", "", "extra advice for the local drafter")
	outreach.BoolP("yes", "y", false, "do not ask for confirmation before sending")
}

func renderCandidate(w io.Writer, c *recruiting.Candidate) {
	renderFields(w,
		"ID", itoa(c.ID),
		"Vacancy", itoa(c.VacancyID),
		"File", c.Filename,
		"Status", c.Status,
		"Score", fmt.Sprintf("%.0f", c.Score),
		"Matches", strings.Join(c.SkillsMatch, ", "),
		"Missing", strings.Join(c.MissingSkills, ", "),
		"Verdict", c.Recommendation,
	)
	if c.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", c.Summary)
	}
}

func pickVacancy(ctx context.Context, a *application) int {
	vacancies, err := a.client.Vacancies(ctx)
	if err != nil {
		a.fatal("getting vacancies", err)
	}

	if vacancies.Len() == 0 {
		a.logger.Fatal("no vacancies", zap.String("hint", "create one with `hr-pilot vacancies create`"))
	}

	prompt := promptui.Select{
		Label: "Choose a vacancy and press ENTER",
		Items: vacancies.Labels(),
	}

	idx, _, err := prompt.Run()
	if err != nil {
		a.logger.Fatal("exiting", zap.Error(err))
	}

	return vacancies.Items[idx].ID
}

func markReviewed(a *application, candidates *recruiting.Candidates) {
	path := strings.TrimSpace(a.config.Filters.ReviewedFile)
	if path == "" {
		a.logger.Fatal("reviewed file is not set", zap.String("hint", "pass --reviewed-file or set filters.reviewed-file"))
	}

	reviewed, err := recruiting.ReviewedFromFile(path)
	if err != nil {
		a.logger.Fatal("reading reviewed file", zap.Error(err))
	}

	reviewed.Append(candidates.ToReviewed())
	if err := reviewed.ToFile(path); err != nil {
		a.logger.Fatal("writing reviewed file", zap.Error(err))
	}

	a.logger.Info("appended to reviewed file", zap.String("filename", path), zap.Int("count", candidates.Len()))
}

func draftLocally(ctx context.Context, a *application, id int, instructions string) string {
	cfg := a.config.AI
	if !cfg.Enabled {
		a.logger.Fatal("local drafting is disabled", zap.String("hint", "set ai.enabled: true in the config"))
	}
	if provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider != "" && provider != "gemini" {
		a.logger.Fatal("unsupported ai provider", zap.String("provider", cfg.Provider))
	}

	candidate, err := a.client.Candidate(ctx, id)
	if err != nil {
		a.fatal("getting candidate", err)
	}

	vacancy, err := a.client.Vacancy(ctx, candidate.VacancyID)
	if err != nil {
		a.fatal("getting vacancy", err)
	}

	apiKey, err := secrets.Load(secrets.Source{Name: "gemini api key", File: cfg.Gemini.APIKeyFile})
	if err != nil {
		a.logger.Fatal("loading gemini api key", zap.Error(err), zap.String("hint", "set ai.gemini.api-key-file or GEMINI_API_KEY_FILE"))
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model)
	if err != nil {
		a.logger.Fatal("creating gemini client", zap.Error(err))
	}

	var drafter ai.Drafter = gemini.NewDrafter(generator, a.logger, cfg.Gemini.MaxLogLength)

	message, err := drafter.Draft(ctx, &ai.OutreachRequest{
		Candidate:    candidate,
		Vacancy:      vacancy,
		Tone:         cfg.Tone,
		Instructions: instructions,
	})
	if err != nil {
		a.logger.Fatal("drafting outreach", zap.Error(err))
	}

	return message
}
