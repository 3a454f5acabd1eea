package recruiting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupActivitiesByDay(t *testing.T) {
	activities := []*Activity{
		{ID: 1, CreatedDate: "2026-03-01T10:00:00Z"},
		{ID: 2, CreatedDate: "garbage"},
		{ID: 3, CreatedDate: "2026-03-02T09:00:00.123456"},
		{ID: 4, CreatedDate: "2026-03-01T23:30:00+03:00"},
		{ID: 5, CreatedDate: "2026-03-02"},
	}

	days := GroupActivitiesByDay(activities)
	require.Len(t, days, 3)

	assert.Equal(t, "2026-03-02", days[0].Date)
	assert.Equal(t, []int{3, 5}, activityIDs(days[0].Activities))
	assert.Equal(t, "2026-03-01", days[1].Date)
	assert.Equal(t, []int{1, 4}, activityIDs(days[1].Activities))
	assert.Equal(t, "unknown", days[2].Date)
	assert.Equal(t, []int{2}, activityIDs(days[2].Activities))
}

func TestFilterActivities(t *testing.T) {
	activities := []*Activity{
		{ID: 1, ActionType: "candidate_uploaded", EntityName: "alice.pdf"},
		{ID: 2, ActionType: "vacancy_created", Description: "Vacancy created", EntityName: "Go Developer"},
		{ID: 3, ActionType: "candidate_uploaded", EntityName: "bob.pdf"},
	}

	tests := []struct {
		name       string
		actionType string
		query      string
		want       []int
	}{
		{name: "everything", want: []int{1, 2, 3}},
		{name: "all keyword", actionType: ActivityTypeAll, want: []int{1, 2, 3}},
		{name: "by type", actionType: "candidate_uploaded", want: []int{1, 3}},
		{name: "by query", query: "  ALICE ", want: []int{1}},
		{name: "by description", query: "created", want: []int{2}},
		{name: "type and query", actionType: "vacancy_created", query: "bob", want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterActivities(activities, tt.actionType, tt.query)
			assert.Equal(t, tt.want, activityIDs(got))
		})
	}
}

func TestSubscriptionState(t *testing.T) {
	assert.Equal(t, "expired", (&SubscriptionStatus{IsExpired: true, IsTrial: true}).State())
	assert.Equal(t, "trial", (&SubscriptionStatus{IsTrial: true}).State())
	assert.Equal(t, "active", (&SubscriptionStatus{}).State())

	assert.Equal(t, 3, (&SubscriptionStatus{Limit: 5, Used: 2}).Remaining())
	assert.Equal(t, 0, (&SubscriptionStatus{Limit: 5, Used: 7}).Remaining())
}

func TestCandidatesExclude(t *testing.T) {
	list := &Candidates{Items: []*Candidate{{ID: 1}, {ID: 2}, {ID: 3}}}

	excluded := list.Exclude([]int{2, 9})
	assert.Equal(t, []int{2}, excluded)
	assert.ElementsMatch(t, []int{1, 3}, list.IDs())
	assert.Nil(t, list.FindByID(2))
	assert.NotNil(t, list.FindByID(3))
}

func TestNewVacancySkillWeights(t *testing.T) {
	data, err := NewVacancy{Title: "Go", SkillWeights: map[string]float64{"go": 1}}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Go","description":"","skill_weights":"{\"go\":1}"}`, string(data))

	data, err = NewVacancy{Title: "Go"}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Go","description":""}`, string(data))
}

func activityIDs(activities []*Activity) []int {
	ids := make([]int, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.ID)
	}
	return ids
}
