package recruiting

import (
	"context"
	"sort"
	"strings"
	"time"
)

const (
	apiAnalyticsPath    = "/analytics/"
	apiActivitiesPath   = "/activities/"
	apiSubscriptionPath = "/candidates/subscription/status"

	// ActivityTypeAll disables filtering by action type.
	ActivityTypeAll = "all"

	dayLayout  = "2006-01-02"
	unknownDay = "unknown"
)

type Analytics struct {
	ActiveVacancies int      `json:"active_vacancies"`
	TotalCandidates int      `json:"total_candidates"`
	AvgAIScore      float64  `json:"avg_ai_score"`
	TimeToHire      string   `json:"time_to_hire"`
	TopSkills       []string `json:"top_skills"`
}

type Activity struct {
	ID          int    `json:"id"`
	ActionType  string `json:"action_type"`
	Description string `json:"description"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	EntityName  string `json:"entity_name"`
	CreatedDate string `json:"created_date"`
	CreatedBy   string `json:"created_by"`
}

// ActivityDay is one day of the activity timeline.
type ActivityDay struct {
	Date       string      `json:"date" yaml:"date"`
	Activities []*Activity `json:"activities" yaml:"activities"`
}

type SubscriptionStatus struct {
	Tier      string `json:"tier"`
	TierName  string `json:"tier_name"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	DaysLeft  int    `json:"days_left"`
	IsTrial   bool   `json:"is_trial"`
	IsExpired bool   `json:"is_expired"`
	CanUpload bool   `json:"can_upload"`
}

func (c *Client) Analytics(ctx context.Context) (*Analytics, error) {
	var analytics Analytics
	if err := c.get(ctx, apiAnalyticsPath, &analytics); err != nil {
		return nil, err
	}

	return &analytics, nil
}

func (c *Client) Activities(ctx context.Context) ([]*Activity, error) {
	var activities []*Activity
	if err := c.get(ctx, apiActivitiesPath, &activities); err != nil {
		return nil, err
	}

	return activities, nil
}

func (c *Client) SubscriptionStatus(ctx context.Context) (*SubscriptionStatus, error) {
	var status SubscriptionStatus
	if err := c.get(ctx, apiSubscriptionPath, &status); err != nil {
		return nil, err
	}

	return &status, nil
}

// State is "expired", "trial" or "active".
func (s *SubscriptionStatus) State() string {
	switch {
	case s.IsExpired:
		return "expired"
	case s.IsTrial:
		return "trial"
	default:
		return "active"
	}
}

// Remaining returns how many resumes can still be uploaded in this period.
func (s *SubscriptionStatus) Remaining() int {
	if s.Used >= s.Limit {
		return 0
	}
	return s.Limit - s.Used
}

// FilterActivities keeps activities of actionType ("" or "all" for any) whose
// description or entity name contains query, case-insensitively.
func FilterActivities(activities []*Activity, actionType, query string) []*Activity {
	query = strings.ToLower(strings.TrimSpace(query))

	filtered := make([]*Activity, 0, len(activities))
	for _, activity := range activities {
		if actionType != "" && actionType != ActivityTypeAll && activity.ActionType != actionType {
			continue
		}

		if query != "" &&
			!strings.Contains(strings.ToLower(activity.Description), query) &&
			!strings.Contains(strings.ToLower(activity.EntityName), query) {
			continue
		}

		filtered = append(filtered, activity)
	}

	return filtered
}

// GroupActivitiesByDay buckets activities by their creation date, newest day
// first. Activities keep their input order inside a day. The date is taken in
// the timestamp's own offset; unparseable timestamps land in a trailing "unknown" day.
func GroupActivitiesByDay(activities []*Activity) []ActivityDay {
	groups := make(map[string][]*Activity)
	for _, activity := range activities {
		key := activityDay(activity.CreatedDate)
		groups[key] = append(groups[key], activity)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == unknownDay || keys[j] == unknownDay {
			return keys[j] == unknownDay && keys[i] != unknownDay
		}
		return keys[i] > keys[j]
	})

	days := make([]ActivityDay, 0, len(keys))
	for _, key := range keys {
		days = append(days, ActivityDay{Date: key, Activities: groups[key]})
	}

	return days
}

var activityLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	dayLayout,
}

func activityDay(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range activityLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(dayLayout)
		}
	}

	return unknownDay
}
