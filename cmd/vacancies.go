package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/recruiting"
)

var vacanciesCmd = &cobra.Command{
	Use:     "vacancies",
	Aliases: []string{"vacancy"},
	Short:   "Manage vacancies",
}

var vacanciesListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List your vacancies",
	Annotations: page(pageVacancies),
	Run: func(cmd *cobra.Command, _ []string) {
		a := setup(cmd)

		vacancies, err := a.client.Vacancies(cmd.Context())
		if err != nil {
			a.fatal("getting vacancies", err)
		}

		a.logger.Debug("got vacancies", zap.Int("count", vacancies.Len()))
		a.print(vacancies.Items, func(w io.Writer) {
			rows := make([][]string, 0, vacancies.Len())
			for _, v := range vacancies.Items {
				rows = append(rows, []string{itoa(v.ID), v.Title, v.ExperienceLevel, v.SalaryRange, v.HHStatus})
			}
			renderTable(w, []string{"ID", "Title", "Level", "Salary", "Published"}, rows)
		})
	},
}

var vacanciesGetCmd = &cobra.Command{
	Use:         "get <id>",
	Short:       "Show a vacancy",
	Args:        cobra.ExactArgs(1),
	Annotations: page(pageVacancies),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(cmd)

		id := parseID(a, args[0])
		vacancy, err := a.client.Vacancy(cmd.Context(), id)
		if err != nil {
			a.fatal("getting vacancy", err)
		}

		a.print(vacancy, func(w io.Writer) { renderVacancy(w, vacancy) })
	},
}

var vacanciesCreateCmd = &cobra.Command{
	Use:         "create",
	Short:       "Create a vacancy",
	Annotations: page(pageVacancies),
	Run: func(cmd *cobra.Command, _ []string) {
		a := setup(cmd)
		flags := cmd.Flags()

		title, _ := flags.GetString("title")
		description, _ := flags.GetString("description")
		skills, _ := flags.GetStringSlice("skills")
		level, _ := flags.GetString("experience")
		salary, _ := flags.GetString("salary")
		rawWeights, _ := flags.GetStringToString("skill-weight")
		publish, _ := flags.GetBool("publish")

		weights, err := parseWeights(rawWeights)
		if err != nil {
			a.logger.Fatal("parsing skill weights", zap.Error(err))
		}

		vacancy, err := a.client.CreateVacancy(cmd.Context(), &recruiting.NewVacancy{
			Title:           title,
			Description:     description,
			RequiredSkills:  strings.Join(skills, ", "),
			ExperienceLevel: level,
			SalaryRange:     salary,
			SkillWeights:    weights,
		}, publish)
		if err != nil {
			a.fatal("creating vacancy", err)
		}

		a.logger.Info("vacancy created", zap.Int("vacancy_id", vacancy.ID), zap.Bool("published", publish))
		a.print(vacancy, func(w io.Writer) { renderVacancy(w, vacancy) })
	},
}

var vacanciesPublishCmd = &cobra.Command{
	Use:         "publish <id>",
	Short:       "Publish a vacancy to a job board",
	Args:        cobra.ExactArgs(1),
	Annotations: page(pageVacancies),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(cmd)

		id := parseID(a, args[0])
		board, _ := cmd.Flags().GetString("board")

		var (
			vacancy *recruiting.Vacancy
			err     error
		)
		switch board {
		case "demo":
			vacancy, err = a.client.PublishDemo(cmd.Context(), id)
		case "hh":
			vacancy, err = a.client.PublishHH(cmd.Context(), id)
		default:
			a.logger.Fatal("unknown board", zap.String("board", board), zap.String("hint", "use demo or hh"))
		}
		if err != nil {
			a.fatal("publishing vacancy", err)
		}

		a.logger.Info("vacancy published", zap.Int("vacancy_id", vacancy.ID), zap.String("board", board))
		a.print(vacancy, func(w io.Writer) { renderVacancy(w, vacancy) })
	},
}

func init() {
	rootCmd.AddCommand(vacanciesCmd)
	vacanciesCmd.AddCommand(vacanciesListCmd, vacanciesGetCmd, vacanciesCreateCmd, vacanciesPublishCmd)

	flags := vacanciesCreateCmd.Flags()
	flags.StringP("title", "t", "", "vacancy title")
	flags.String("description", "", "vacancy description")
	flags.StringSlice("skills", nil, "required skills, comma separated")
	flags.String("experience", "", "experience level, e.g. Junior, Middle, Senior")
	flags.String("salary", "", "salary range")
	flags.StringToString("skill-weight", nil, "importance of a skill from 0 to 1, e.g. go=0.8")
	flags.Bool("publish", false, "publish to the demo board right away")
	vacanciesCreateCmd.MarkFlagRequired("title")

	vacanciesPublishCmd.Flags().String("board", "demo", "job board: demo or hh")
}

func renderVacancy(w io.Writer, v *recruiting.Vacancy) {
	renderFields(w,
		"ID", itoa(v.ID),
		"Title", v.Title,
		"Level", v.ExperienceLevel,
		"Salary", v.SalaryRange,
		"Skills", v.RequiredSkills,
		"Board ID", v.HHID,
		"Published", v.HHStatus,
	)
	if v.Description != "" {
		fmt.Fprintf(w, "\n%s\n", v.Description)
	}
}

func parseWeights(raw map[string]string) (map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	weights := make(map[string]float64, len(raw))
	for skill, value := range raw {
		weight, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("weight of %q: %w", skill, err)
		}
		if weight < 0 || weight > 1 {
			return nil, fmt.Errorf("weight of %q must be between 0 and 1", skill)
		}
		weights[strings.TrimSpace(skill)] = weight
	}
	return weights, nil
}

func parseID(a *application, raw string) int {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		a.logger.Fatal("invalid id", zap.String("id", raw))
	}
	return id
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
