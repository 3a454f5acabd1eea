package recruiting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/api"
	"github.com/spigell/hr-pilot/internal/utils"
)

const (
	apiChatPath  = "/chat/"
	apiHRAskPath = "/chat/hr_ask"

	RoleUser      = "user"
	RoleAssistant = "assistant"

	// interviewStartMarker asks the backend to open the interview with its
	// first assistant message.
	interviewStartMarker = "AI_START"

	defaultPollInterval = 2 * time.Second
	defaultPollAttempts = 5
)

var ErrNoReply = errors.New("assistant did not reply in time")

type ChatMessage struct {
	ID          int    `json:"id"`
	CandidateID int    `json:"candidate_id"`
	Role        string `json:"role"`
	Content     string `json:"content"`
	CreatedAt   string `json:"created_at"`
}

type chatRequest struct {
	CandidateID int    `json:"candidate_id"`
	Role        string `json:"role"`
	Content     string `json:"content"`
}

type hrAskRequest struct {
	CandidateID int    `json:"candidate_id"`
	Question    string `json:"question"`
}

// PollOptions controls WaitForReply. Zero values use a 2s interval and 5 attempts.
type PollOptions struct {
	Interval time.Duration
	Attempts int
}

func (c *Client) ChatHistory(ctx context.Context, candidateID int) ([]*ChatMessage, error) {
	var messages []*ChatMessage
	if err := c.get(ctx, fmt.Sprintf("%s%d", apiChatPath, candidateID), &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func (c *Client) SendChatMessage(ctx context.Context, candidateID int, role, content string) (*ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("message must not be empty")
	}

	body := api.JSONBody{Value: &chatRequest{
		CandidateID: candidateID,
		Role:        role,
		Content:     content,
	}}

	var message ChatMessage
	if err := c.post(ctx, apiChatPath, body, &message); err != nil {
		return nil, err
	}

	return &message, nil
}

// StartInterview returns the chat history, asking the backend to open the
// interview first when there is none yet.
func (c *Client) StartInterview(ctx context.Context, candidateID int) ([]*ChatMessage, error) {
	history, err := c.ChatHistory(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	if len(history) > 0 {
		return history, nil
	}

	c.logger.Debug("chat is empty, starting interview", zap.Int("candidate_id", candidateID))

	if _, err := c.SendChatMessage(ctx, candidateID, RoleAssistant, interviewStartMarker); err != nil {
		return nil, fmt.Errorf("starting interview: %w", err)
	}

	return c.ChatHistory(ctx, candidateID)
}

// WaitForReply polls the chat history until it holds more than known
// messages and the last one is from the assistant.
func (c *Client) WaitForReply(ctx context.Context, candidateID, known int, opts PollOptions) (*ChatMessage, error) {
	if opts.Interval <= 0 {
		opts.Interval = defaultPollInterval
	}
	if opts.Attempts <= 0 {
		opts.Attempts = defaultPollAttempts
	}

	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if err := utils.WaitFor(ctx, opts.Interval); err != nil {
			return nil, err
		}

		history, err := c.ChatHistory(ctx, candidateID)
		if err != nil {
			return nil, err
		}

		if len(history) > known {
			last := history[len(history)-1]
			if last.Role == RoleAssistant {
				return last, nil
			}
		}

		c.logger.Debug("no assistant reply yet",
			zap.Int("candidate_id", candidateID),
			zap.Int("attempt", attempt),
			zap.Int("messages", len(history)),
		)
	}

	return nil, ErrNoReply
}

// AskHR asks the assistant about a candidate. The answer is not stored in the
// interview history.
func (c *Client) AskHR(ctx context.Context, candidateID int, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question must not be empty")
	}

	body := api.JSONBody{Value: &hrAskRequest{CandidateID: candidateID, Question: question}}

	var answer string
	if err := c.post(ctx, apiHRAskPath, body, &answer); err != nil {
		return "", err
	}

	return answer, nil
}
