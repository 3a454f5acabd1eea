package devserver

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/spigell/hr-pilot/internal/api"
	"github.com/spigell/hr-pilot/internal/recruiting"
)

const (
	interviewStartMarker = "AI_START"
	maxResumeSize        = 5 << 20
)

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, gin.H{"msg": "id must be an integer"})
		return 0, false
	}
	return id, true
}

// logActivity must be called with s.mu held.
func (s *Server) logActivity(u *user, actionType, description, entityType string, entityID int, entityName string) {
	s.nextID++
	s.activities = append(s.activities, &recruiting.Activity{
		ID:          s.nextID,
		ActionType:  actionType,
		Description: description,
		EntityType:  entityType,
		EntityID:    strconv.Itoa(entityID),
		EntityName:  entityName,
		CreatedDate: time.Now().UTC().Format(time.RFC3339),
		CreatedBy:   u.Email,
	})
}

// vacancyLocked returns the vacancy id owned by u. Must be called with s.mu held.
func (s *Server) vacancyLocked(u *user, id int) *recruiting.Vacancy {
	for _, v := range s.vacancies {
		if v.ID == id && v.OwnerID == u.ID {
			return v
		}
	}
	return nil
}

// candidateLocked returns the candidate id if it belongs to one of u's
// vacancies. Must be called with s.mu held.
func (s *Server) candidateLocked(u *user, id int) (*recruiting.Candidate, *recruiting.Vacancy) {
	for _, candidate := range s.candidates {
		if candidate.ID != id {
			continue
		}
		if v := s.vacancyLocked(u, candidate.VacancyID); v != nil {
			return candidate, v
		}
	}
	return nil, nil
}

func (s *Server) listVacancies(c *gin.Context) {
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	owned := make([]*recruiting.Vacancy, 0)
	for _, v := range s.vacancies {
		if v.OwnerID == u.ID {
			owned = append(owned, v)
		}
	}

	c.JSON(http.StatusOK, owned)
}

func (s *Server) createVacancy(c *gin.Context) {
	u := currentUser(c)

	var req recruiting.Vacancy
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		abort(c, http.StatusUnprocessableEntity, gin.H{"msg": "title is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	req.ID = s.nextID
	req.OwnerID = u.ID
	s.vacancies = append(s.vacancies, &req)
	s.logActivity(u, "vacancy_created", "Vacancy created", "vacancy", req.ID, req.Title)

	c.JSON(http.StatusOK, req)
}

func (s *Server) getVacancy(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.vacancyLocked(currentUser(c), id)
	if v == nil {
		abort(c, http.StatusNotFound, "Vacancy not found")
		return
	}

	c.JSON(http.StatusOK, v)
}

func (s *Server) publishVacancy(board string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}

		u := currentUser(c)

		s.mu.Lock()
		defer s.mu.Unlock()

		v := s.vacancyLocked(u, id)
		if v == nil {
			abort(c, http.StatusNotFound, "Vacancy not found")
			return
		}

		v.HHID = fmt.Sprintf("%s-%d", board, v.ID)
		v.HHStatus = "published"
		s.logActivity(u, "vacancy_published", "Vacancy published to "+board, "vacancy", v.ID, v.Title)

		c.JSON(http.StatusOK, v)
	}
}

func (s *Server) listCandidates(c *gin.Context) {
	u := currentUser(c)

	vacancyID := 0
	if raw := c.Query("vacancy_id"); raw != "" {
		var err error
		if vacancyID, err = strconv.Atoi(raw); err != nil {
			abort(c, http.StatusUnprocessableEntity, gin.H{"msg": "vacancy_id must be an integer"})
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if vacancyID > 0 && s.vacancyLocked(u, vacancyID) == nil {
		abort(c, http.StatusNotFound, "Vacancy not found")
		return
	}

	result := make([]*recruiting.Candidate, 0)
	for _, candidate := range s.candidates {
		if vacancyID > 0 && candidate.VacancyID != vacancyID {
			continue
		}
		if s.vacancyLocked(u, candidate.VacancyID) != nil {
			result = append(result, candidate)
		}
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) getCandidate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate, _ := s.candidateLocked(currentUser(c), id)
	if candidate == nil {
		abort(c, http.StatusNotFound, "Candidate not found")
		return
	}

	c.JSON(http.StatusOK, candidate)
}

func (s *Server) uploadCandidate(c *gin.Context) {
	u := currentUser(c)

	vacancyID, err := strconv.Atoi(c.Query("vacancy_id"))
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, gin.H{"msg": "vacancy_id is required"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, gin.H{"msg": "file is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		abort(c, http.StatusBadRequest, "Could not read file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxResumeSize))
	if err != nil {
		abort(c, http.StatusBadRequest, "Could not read file")
		return
	}

	text := string(content)
	if !utf8.Valid(content) {
		text = "Binary file content placeholder. Real extraction needed for PDF."
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vacancyLocked(u, vacancyID) == nil {
		abort(c, http.StatusNotFound, "Vacancy not found")
		return
	}

	if u.used >= s.cfg.ResumeLimit {
		abort(c, http.StatusPaymentRequired, gin.H{
			"error": api.SubscriptionLimitReached,
			"msg":   fmt.Sprintf("Resume limit of %d reached for the current period", s.cfg.ResumeLimit),
		})
		return
	}

	u.used++
	s.nextID++
	candidate := &recruiting.Candidate{
		ID:        s.nextID,
		VacancyID: vacancyID,
		Filename:  header.Filename,
		Content:   text,
		Status:    recruiting.CandidateStatusNew,
	}
	s.candidates = append(s.candidates, candidate)
	s.logActivity(u, "candidate_uploaded", "Resume uploaded", "candidate", candidate.ID, header.Filename)

	c.JSON(http.StatusOK, candidate)
}

// analyzeCandidate scores the resume by the share of required skills it mentions.
func (s *Server) analyzeCandidate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate, vacancy := s.candidateLocked(u, id)
	if candidate == nil {
		abort(c, http.StatusNotFound, "Candidate not found")
		return
	}

	content := strings.ToLower(candidate.Content)
	candidate.SkillsMatch = []string{}
	candidate.MissingSkills = []string{}
	for _, skill := range strings.Split(vacancy.RequiredSkills, ",") {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		if strings.Contains(content, strings.ToLower(skill)) {
			candidate.SkillsMatch = append(candidate.SkillsMatch, skill)
		} else {
			candidate.MissingSkills = append(candidate.MissingSkills, skill)
		}
	}

	total := len(candidate.SkillsMatch) + len(candidate.MissingSkills)
	candidate.Score = 0
	if total > 0 {
		candidate.Score = math.Round(float64(len(candidate.SkillsMatch)) / float64(total) * 100)
	}

	candidate.Summary = fmt.Sprintf("Matches %d of %d required skills for %q.", len(candidate.SkillsMatch), total, vacancy.Title)
	candidate.Recommendation = "Reject"
	if candidate.Score >= 50 {
		candidate.Recommendation = "Invite to interview"
	}
	candidate.Status = "ANALYZED"
	s.logActivity(u, "candidate_analyzed", "AI analysis completed", "candidate", candidate.ID, candidate.Filename)

	c.JSON(http.StatusOK, candidate)
}

func (s *Server) generateOutreach(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate, vacancy := s.candidateLocked(currentUser(c), id)
	if candidate == nil {
		abort(c, http.StatusNotFound, "Candidate not found")
		return
	}

	c.JSON(http.StatusOK, recruiting.OutreachDraft{
		Message: fmt.Sprintf("Hello! We reviewed your resume (%s) and would like to talk about the %s position.", candidate.Filename, vacancy.Title),
	})
}

func (s *Server) sendOutreach(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		abort(c, http.StatusUnprocessableEntity, gin.H{"msg": "message is required"})
		return
	}

	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate, _ := s.candidateLocked(u, id)
	if candidate == nil {
		abort(c, http.StatusNotFound, "Candidate not found")
		return
	}

	s.logActivity(u, "outreach_sent", "Outreach message sent", "candidate", candidate.ID, candidate.Filename)
	c.JSON(http.StatusOK, recruiting.OutreachResult{Mock: true})
}

func (s *Server) subscriptionStatus(c *gin.Context) {
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	c.JSON(http.StatusOK, recruiting.SubscriptionStatus{
		Tier:      "FREE",
		TierName:  "Free trial",
		Limit:     s.cfg.ResumeLimit,
		Used:      u.used,
		DaysLeft:  defaultTrialDays,
		IsTrial:   true,
		CanUpload: u.used < s.cfg.ResumeLimit,
	})
}

func (s *Server) chatHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if candidate, _ := s.candidateLocked(currentUser(c), id); candidate == nil {
		abort(c, http.StatusNotFound, "Candidate not found")
		return
	}

	history := make([]*recruiting.ChatMessage, 0)
	for _, m := range s.messages {
		if m.CandidateID == id {
			history = append(history, m)
		}
	}

	c.JSON(http.StatusOK, history)
}

// postChat stores the message. The interview opener replaces the start
// marker, and every user message gets an immediate assistant follow-up.
func (s *Server) postChat(c *gin.Context) {
	var req struct {
		CandidateID int    `json:"candidate_id"`
		Role        string `json:"role"`
		Content     string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		abort(c, http.StatusUnprocessableEntity, gin.H{"msg": "candidate_id, role and content are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate, vacancy := s.candidateLocked(currentUser(c), req.CandidateID)
	if candidate == nil {
		abort(c, http.StatusNotFound, "Candidate not found")
		return
	}

	if req.Role == recruiting.RoleAssistant && req.Content == interviewStartMarker {
		req.Content = fmt.Sprintf("Hello! Let's start the interview for the %s position. Tell me about your recent experience.", vacancy.Title)
	}

	stored := s.appendMessageLocked(req.CandidateID, req.Role, req.Content)

	if req.Role == recruiting.RoleUser {
		s.appendMessageLocked(req.CandidateID, recruiting.RoleAssistant,
			fmt.Sprintf("Thank you. How did you use %s in that work?", firstSkill(vacancy)))
	}

	c.JSON(http.StatusOK, stored)
}

func (s *Server) appendMessageLocked(candidateID int, role, content string) *recruiting.ChatMessage {
	s.nextID++
	m := &recruiting.ChatMessage{
		ID:          s.nextID,
		CandidateID: candidateID,
		Role:        role,
		Content:     content,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	s.messages = append(s.messages, m)
	return m
}

func firstSkill(v *recruiting.Vacancy) string {
	for _, skill := range strings.Split(v.RequiredSkills, ",") {
		if skill = strings.TrimSpace(skill); skill != "" {
			return skill
		}
	}
	return "your main tools"
}

func (s *Server) askHR(c *gin.Context) {
	var req struct {
		CandidateID int    `json:"candidate_id"`
		Question    string `json:"question"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		abort(c, http.StatusUnprocessableEntity, gin.H{"msg": "question is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate, vacancy := s.candidateLocked(currentUser(c), req.CandidateID)
	if candidate == nil {
		abort(c, http.StatusNotFound, "Candidate not found")
		return
	}

	c.JSON(http.StatusOK, fmt.Sprintf("Candidate %s scored %.0f for %s. %s", candidate.Filename, candidate.Score, vacancy.Title, candidate.Recommendation))
}

func (s *Server) analytics(c *gin.Context) {
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	result := recruiting.Analytics{TimeToHire: "12 days", TopSkills: []string{}}
	var total float64
	for _, v := range s.vacancies {
		if v.OwnerID == u.ID {
			result.ActiveVacancies++
		}
	}
	for _, candidate := range s.candidates {
		if s.vacancyLocked(u, candidate.VacancyID) != nil {
			result.TotalCandidates++
			total += candidate.Score
			result.TopSkills = appendUnique(result.TopSkills, candidate.SkillsMatch...)
		}
	}
	if result.TotalCandidates > 0 {
		result.AvgAIScore = math.Round(total/float64(result.TotalCandidates)*100) / 100
	}

	c.JSON(http.StatusOK, result)
}

func appendUnique(list []string, values ...string) []string {
	for _, value := range values {
		found := false
		for _, existing := range list {
			if existing == value {
				found = true
				break
			}
		}
		if !found {
			list = append(list, value)
		}
	}
	return list
}

func (s *Server) listActivities(c *gin.Context) {
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*recruiting.Activity, 0, len(s.activities))
	for i := len(s.activities) - 1; i >= 0; i-- {
		if s.activities[i].CreatedBy == u.Email {
			result = append(result, s.activities[i])
		}
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) getAISettings(c *gin.Context) {
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	c.JSON(http.StatusOK, u.settings)
}

func (s *Server) updateAISettings(c *gin.Context) {
	var req recruiting.AISettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, gin.H{"msg": "invalid settings payload"})
		return
	}

	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		abort(c, http.StatusUnprocessableEntity, gin.H{"msg": "temperature must be between 0 and 2"})
		return
	}

	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.AIRole != nil {
		u.settings.AIRole = *req.AIRole
	}
	if req.SystemPrompt != nil {
		u.settings.SystemPrompt = *req.SystemPrompt
	}
	if req.ModelName != nil {
		u.settings.ModelName = *req.ModelName
	}
	if req.Temperature != nil {
		u.settings.Temperature = *req.Temperature
	}

	c.JSON(http.StatusOK, u.settings)
}
