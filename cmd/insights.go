package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/api"
	"github.com/spigell/hr-pilot/internal/recruiting"
)

var analyticsCmd = &cobra.Command{
	Use:         "analytics",
	Short:       "Show hiring statistics",
	Annotations: page(pageAnalytics),
	Run: func(cmd *cobra.Command, _ []string) {
		a := setup(cmd)

		stats, err := a.client.Analytics(cmd.Context())
		if err != nil {
			a.fatal("getting analytics", err)
		}

		a.print(stats, func(w io.Writer) {
			renderFields(w,
				"Active vacancies", itoa(stats.ActiveVacancies),
				"Candidates", itoa(stats.TotalCandidates),
				"Avg AI score", fmt.Sprintf("%.2f", stats.AvgAIScore),
				"Time to hire", stats.TimeToHire,
				"Top skills", strings.Join(stats.TopSkills, ", "),
			)
		})
	},
}

var activityCmd = &cobra.Command{
	Use:         "activity",
	Short:       "Show the activity log",
	Annotations: page(pageAnalytics),
	Run: func(cmd *cobra.Command, _ []string) {
		a := setup(cmd)

		activities, err := a.client.Activities(cmd.Context())
		if err != nil {
			a.fatal("getting activities", err)
		}

		actionType, _ := cmd.Flags().GetString("type")
		query, _ := cmd.Flags().GetString("query")
		activities = recruiting.FilterActivities(activities, actionType, query)

		a.logger.Debug("filtered activities", zap.Int("count", len(activities)), zap.String("type", actionType))

		if group, _ := cmd.Flags().GetBool("group"); group {
			days := recruiting.GroupActivitiesByDay(activities)
			a.print(days, func(w io.Writer) {
				for i, day := range days {
					if i > 0 {
						fmt.Fprintln(w)
					}
					fmt.Fprintln(w, headerStyle.Render(day.Date))
					renderActivities(w, day.Activities)
				}
			})
			return
		}

		a.print(activities, func(w io.Writer) { renderActivities(w, activities) })
	},
}

var subscriptionCmd = &cobra.Command{
	Use:         "subscription",
	Short:       "Show the plan and resume quota",
	Annotations: page(api.PagePricing),
	Run: func(cmd *cobra.Command, _ []string) {
		a := setup(cmd)

		status, err := a.client.SubscriptionStatus(cmd.Context())
		if err != nil {
			a.fatal("getting subscription status", err)
		}

		a.print(status, func(w io.Writer) {
			renderFields(w,
				"Plan", status.TierName,
				"State", status.State(),
				"Used", fmt.Sprintf("%d of %d", status.Used, status.Limit),
				"Remaining", itoa(status.Remaining()),
				"Days left", itoa(status.DaysLeft),
			)
		})
	},
}

var aiSettingsCmd = &cobra.Command{
	Use:         "ai-settings",
	Short:       "Show or change the assistant settings",
	Annotations: page(pageSettings),
	Run: func(cmd *cobra.Command, _ []string) {
		a := setup(cmd)
		flags := cmd.Flags()

		update := &recruiting.AISettingsUpdate{}
		changed := false
		for name, target := range map[string]**string{
			"role":          &update.AIRole,
			"system-prompt": &update.SystemPrompt,
			"model":         &update.ModelName,
		} {
			if flags.Changed(name) {
				value, _ := flags.GetString(name)
				*target = &value
				changed = true
			}
		}
		if flags.Changed("temperature") {
			temperature, _ := flags.GetFloat64("temperature")
			if temperature < 0 || temperature > 2 {
				a.logger.Fatal("temperature must be between 0 and 2", zap.Float64("temperature", temperature))
			}
			update.Temperature = &temperature
			changed = true
		}

		var (
			settings *recruiting.AISettings
			err      error
		)
		if changed {
			settings, err = a.client.UpdateAISettings(cmd.Context(), update)
		} else {
			settings, err = a.client.AISettings(cmd.Context())
		}
		if err != nil {
			a.fatal("ai settings", err)
		}

		if changed {
			a.logger.Info("ai settings updated")
		}

		a.print(settings, func(w io.Writer) {
			renderFields(w,
				"Role", settings.AIRole,
				"Model", settings.ModelName,
				"Temperature", fmt.Sprintf("%.2f", settings.Temperature),
				"System prompt", settings.SystemPrompt,
			)
		})
	},
}

func init() {
	rootCmd.AddCommand(analyticsCmd, activityCmd, subscriptionCmd, aiSettingsCmd)

	activityCmd.Flags().String("type", recruiting.ActivityTypeAll, "only this action type, e.g. candidate_uploaded")
	activityCmd.Flags().StringP("query", "q", "", "search in descriptions and entity names")
	activityCmd.Flags().Bool("group", false, "group the log by day")

	flags := aiSettingsCmd.Flags()
	flags.String("role", "", "assistant role")
	flags.String("system-prompt", "", "assistant system prompt")
	flags.String("model", "", "model name")
	flags.Float64("temperature", 0, "sampling temperature from 0 to 2")
}

func renderActivities(w io.Writer, activities []*recruiting.Activity) {
	rows := make([][]string, 0, len(activities))
	for _, act := range activities {
		rows = append(rows, []string{act.CreatedDate, act.ActionType, act.Description})
	}
	renderTable(w, []string{"When", "Action", "Description"}, rows)
}
