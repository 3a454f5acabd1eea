package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/recruiting"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "AI interview chat with a candidate",
}

var chatHistoryCmd = &cobra.Command{
	Use:         "history <candidate-id>",
	Short:       "Show the interview history",
	Args:        cobra.ExactArgs(1),
	Annotations: page(pageChat),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(cmd)

		messages, err := a.client.ChatHistory(cmd.Context(), parseID(a, args[0]))
		if err != nil {
			a.fatal("getting chat history", err)
		}

		a.print(messages, func(w io.Writer) { renderMessages(w, messages) })
	},
}

var chatStartCmd = &cobra.Command{
	Use:         "start <candidate-id>",
	Short:       "Open the interview unless it already started",
	Args:        cobra.ExactArgs(1),
	Annotations: page(pageChat),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(cmd)

		messages, err := a.client.StartInterview(cmd.Context(), parseID(a, args[0]))
		if err != nil {
			a.fatal("starting interview", err)
		}

		a.print(messages, func(w io.Writer) { renderMessages(w, messages) })
	},
}

var chatSendCmd = &cobra.Command{
	Use:         "send <candidate-id> <message>",
	Short:       "Send a message as the candidate",
	Args:        cobra.MinimumNArgs(2),
	Annotations: page(pageChat),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(cmd)
		ctx := cmd.Context()

		id := parseID(a, args[0])
		text := strings.Join(args[1:], " ")

		history, err := a.client.ChatHistory(ctx, id)
		if err != nil {
			a.fatal("getting chat history", err)
		}

		message, err := a.client.SendChatMessage(ctx, id, recruiting.RoleUser, text)
		if err != nil {
			a.fatal("sending message", err)
		}

		a.logger.Debug("message sent", zap.Int("candidate_id", id), zap.Int("message_id", message.ID))

		wait, _ := cmd.Flags().GetBool("wait")
		if !wait {
			a.print(message, func(w io.Writer) { renderMessages(w, []*recruiting.ChatMessage{message}) })
			return
		}

		interval, _ := cmd.Flags().GetDuration("poll-interval")
		attempts, _ := cmd.Flags().GetInt("poll-attempts")

		// The sent message is already part of the history.
		reply, err := a.client.WaitForReply(ctx, id, len(history)+1, recruiting.PollOptions{
			Interval: interval,
			Attempts: attempts,
		})
		if errors.Is(err, recruiting.ErrNoReply) {
			a.logger.Warn("no reply yet", zap.String("hint", fmt.Sprintf("check later with `hr-pilot chat history %d`", id)))
			return
		}
		if err != nil {
			a.fatal("waiting for reply", err)
		}

		a.print(reply, func(w io.Writer) { renderMessages(w, []*recruiting.ChatMessage{reply}) })
	},
}

var chatAskCmd = &cobra.Command{
	Use:         "ask <candidate-id> <question>",
	Short:       "Ask the assistant about a candidate",
	Args:        cobra.MinimumNArgs(2),
	Annotations: page(pageChat),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(cmd)

		answer, err := a.client.AskHR(cmd.Context(), parseID(a, args[0]), strings.Join(args[1:], " "))
		if err != nil {
			a.fatal("asking assistant", err)
		}

		a.print(map[string]string{"answer": answer}, func(w io.Writer) {
			fmt.Fprintln(w, answer)
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.AddCommand(chatHistoryCmd, chatStartCmd, chatSendCmd, chatAskCmd)

	chatSendCmd.Flags().BoolP("wait", "w", false, "wait for the assistant to answer")
	chatSendCmd.Flags().Duration("poll-interval", 2*time.Second, "how often to check for the answer")
	chatSendCmd.Flags().Int("poll-attempts", 5, "how many times to check for the answer")
}

func renderMessages(w io.Writer, messages []*recruiting.ChatMessage) {
	if len(messages) == 0 {
		fmt.Fprintln(w, labelStyle.Render("nothing to show"))
		return
	}

	for _, m := range messages {
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render(m.Role+":"), m.Content)
	}
}
