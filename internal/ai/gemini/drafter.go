package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/ai"
	"github.com/spigell/hr-pilot/internal/logger"
	"github.com/spigell/hr-pilot/internal/utils"
)

const (
	providerName = "gemini"

	defaultTone             = "Friendly"
	defaultMaxLogLength     = 200
	maxResumeRunes          = 4000
	maxToneRunes            = 40
	maxUserInstructionRunes = 500
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

// Drafter writes outreach messages with a Gemini model.
type Drafter struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Drafter = (*Drafter)(nil)

func NewDrafter(generator contentGenerator, log *zap.Logger, maxLogLength int) *Drafter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Drafter{
		generator: generator,
		logger:    logger.WithAI(log, providerName, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (d *Drafter) Draft(ctx context.Context, req *ai.OutreachRequest) (string, error) {
	if req == nil || req.Candidate == nil {
		return "", errors.New("candidate is required")
	}
	if req.Vacancy == nil {
		return "", errors.New("vacancy is required")
	}

	candidateJSON, err := json.MarshalIndent(map[string]any{
		"filename":       req.Candidate.Filename,
		"score":          req.Candidate.Score,
		"summary":        req.Candidate.Summary,
		"skills_match":   req.Candidate.SkillsMatch,
		"missing_skills": req.Candidate.MissingSkills,
		"resume":         utils.TruncateForLog(req.Candidate.Content, maxResumeRunes),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidate payload: %w", err)
	}

	vacancyJSON, err := json.MarshalIndent(req.Vacancy, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal vacancy payload: %w", err)
	}

	prompt := buildPrompt(string(candidateJSON), string(vacancyJSON), req.Tone, req.Instructions)

	d.logger.Debug("gemini generate content request",
		zap.Int("candidate_id", req.Candidate.ID),
		zap.Int("vacancy_id", req.Vacancy.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, d.maxLogLen)),
	)

	raw, err := d.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	d.logger.Debug("gemini generate content response",
		zap.Int("candidate_id", req.Candidate.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, d.maxLogLen)),
	)

	message := cleanMessage(raw)
	if message == "" {
		return "", errors.New("gemini returned an empty message")
	}

	return message, nil
}

func buildPrompt(candidateJSON, vacancyJSON, tone, instructions string) string {
	tone = sanitizeLine(tone, maxToneRunes)
	if tone == "" {
		tone = defaultTone
	}

	return strings.NewReplacer(
		"{{TONE}}", tone,
		"{{INSTRUCTIONS}}", sanitizeInstructions(instructions),
		"{{VACANCY_JSON}}", vacancyJSON,
		"{{CANDIDATE_JSON}}", candidateJSON,
	).Replace(promptTemplate)
}

// sanitizeLine collapses whitespace and swaps square brackets for round ones
// so user text cannot pose as a role marker.
func sanitizeLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.NewReplacer("[", "(", "]", ")").Replace(s)

	if runes := []rune(s); len(runes) > limit {
		s = strings.TrimSpace(string(runes[:limit]))
	}
	return s
}

// sanitizeInstructions renders instructions as an indented list, one item per
// non-empty line, capped at maxUserInstructionRunes in total.
func sanitizeInstructions(s string) string {
	budget := maxUserInstructionRunes

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if budget <= 0 {
			break
		}
		line = sanitizeLine(line, budget)
		if line == "" {
			continue
		}
		budget -= utf8.RuneCountInString(line)
		lines = append(lines, "  - "+line)
	}

	if len(lines) == 0 {
		return "  - none"
	}
	return strings.Join(lines, "\n")
}

// cleanMessage strips code fences and wrapping quotes models like to add.
func cleanMessage(raw string) string {
	msg := strings.TrimSpace(raw)
	if strings.HasPrefix(msg, "```") {
		msg = strings.TrimPrefix(msg, "```")
		if idx := strings.Index(msg, "\n"); idx != -1 && !strings.Contains(msg[:idx], " ") {
			msg = msg[idx+1:]
		}
		if idx := strings.LastIndex(msg, "```"); idx != -1 {
			msg = msg[:idx]
		}
		msg = strings.TrimSpace(msg)
	}

	if len(msg) >= 2 && strings.HasPrefix(msg, `"`) && strings.HasSuffix(msg, `"`) {
		msg = strings.TrimSpace(msg[1 : len(msg)-1])
	}

	return msg
}
