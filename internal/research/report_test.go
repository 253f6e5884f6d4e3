package research

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalizeReport_RoundTrip(t *testing.T) {
	got := FinalizeReport("I", "## Insights\nBODY\n## Sources\nSRC", "C")
	assert.Equal(t, "I\n\n---\n\nBODY\n\n---\n\nC\n\n## Sources\nSRC", got)
}

func TestFinalizeReport_NoSources(t *testing.T) {
	got := FinalizeReport("intro", "## Insights\njust a body", "outro")
	assert.Equal(t, "intro\n\n---\n\njust a body\n\n---\n\noutro", got)
	assert.NotContains(t, got, "## Sources")
}

func TestFinalizeReport_NoInsightsPrefix(t *testing.T) {
	got := FinalizeReport("intro", "plain body", "outro")
	assert.Equal(t, "intro\n\n---\n\nplain body\n\n---\n\noutro", got)
}

func TestFinalizeReport_RepeatedSourcesDelimiter(t *testing.T) {
	body := "BODY\n## Sources\nA\n## Sources\nB"
	got := FinalizeReport("I", body, "C")
	// Malformed split: sources treated as absent, body kept whole.
	assert.False(t, strings.HasSuffix(got, "\nB"))
	assert.Equal(t, "I\n\n---\n\n"+body+"\n\n---\n\nC", got)
}

func TestFlattenTranscript(t *testing.T) {
	messages := []Message{
		{Role: RoleHuman, Content: "So you said you were writing an article on tea?"},
		{Role: RoleAI, Name: "Dr. Leaf", Content: "Tell me about oxidation."},
		{Role: RoleAI, Name: ExpertName, Content: "Oxidation darkens the leaf."},
	}
	got := FlattenTranscript(messages)
	assert.Equal(t,
		"Human: So you said you were writing an article on tea?\n"+
			"AI (Dr. Leaf): Tell me about oxidation.\n"+
			"AI (expert): Oxidation darkens the leaf.",
		got)
}

func TestShouldEndInterview_TurnLimit(t *testing.T) {
	messages := []Message{
		{Role: RoleAI, Content: "q1"},
		{Role: RoleAI, Name: ExpertName, Content: "a1"},
		{Role: RoleAI, Content: "q2"},
		{Role: RoleAI, Name: ExpertName, Content: "a2"},
	}
	assert.True(t, ShouldEndInterview(messages, 2))
	assert.False(t, ShouldEndInterview(messages, 3))
}

func TestShouldEndInterview_TerminationPhrase(t *testing.T) {
	messages := []Message{
		{Role: RoleAI, Content: "Thank you so much for your help!"},
		{Role: RoleAI, Name: ExpertName, Content: "Happy to assist."},
	}
	assert.True(t, ShouldEndInterview(messages, 5))
}

func TestShouldEndInterview_ShortHistoryNeverEnds(t *testing.T) {
	assert.False(t, ShouldEndInterview(nil, 2))
	assert.False(t, ShouldEndInterview([]Message{{Role: RoleAI, Content: "q"}}, 2))
}

func TestPersonaBatch_TruncateAndValidate(t *testing.T) {
	batch := PersonaBatch{Analysts: []Analyst{
		{Affiliation: "Univ", Name: "A", Role: "r", Description: "d"},
		{Affiliation: "Lab", Name: "B", Role: "r", Description: "d"},
		{Affiliation: "Org", Name: "C", Role: "r", Description: "d"},
	}}
	assert.NoError(t, batch.Validate())
	assert.Len(t, batch.Truncate(2).Analysts, 2)
	assert.Len(t, batch.Truncate(0).Analysts, 3)

	bad := PersonaBatch{Analysts: []Analyst{{Name: "X"}}}
	assert.Error(t, bad.Validate())
	assert.Error(t, PersonaBatch{}.Validate())
}

func TestReportState_TotalTokens(t *testing.T) {
	s := ReportState{TokenUsage: []int{10, 25, 5}}
	assert.Equal(t, 40, s.TotalTokens())
	assert.Zero(t, ReportState{}.TotalTokens())
}

func TestErrorTaxonomy(t *testing.T) {
	err := WrapError(KindUpstreamUnavailable, assert.AnError, "gateway call failed")
	assert.True(t, IsKind(err, KindUpstreamUnavailable))
	assert.False(t, IsKind(err, KindSchemaViolation))
	assert.Equal(t, KindUpstreamUnavailable, KindOf(err))

	pf := PartialFailure([]string{"Dr. Leaf", "Prof. Stone"})
	assert.True(t, IsKind(pf, KindPartialFailure))
	assert.Contains(t, pf.Error(), "Dr. Leaf")
	assert.Contains(t, pf.Error(), "Prof. Stone")
}
