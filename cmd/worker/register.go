package main

import (
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"

	"github.com/roundtable-ai/orchestrator/internal/activities"
)

// registerActivities binds every activity method under the name the
// workflows invoke it by.
func registerActivities(w worker.Worker, acts *activities.Activities) {
	register := func(fn interface{}, name string) {
		w.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
	}
	register(acts.GeneratePersonas, activities.GeneratePersonasActivity)
	register(acts.GenerateSessionName, activities.GenerateSessionNameActivity)
	register(acts.GenerateQuestion, activities.GenerateQuestionActivity)
	register(acts.SearchWeb, activities.SearchWebActivity)
	register(acts.SearchWikipedia, activities.SearchWikipediaActivity)
	register(acts.GenerateAnswer, activities.GenerateAnswerActivity)
	register(acts.WriteSection, activities.WriteSectionActivity)
	register(acts.WriteReport, activities.WriteReportActivity)
	register(acts.WriteIntroduction, activities.WriteIntroductionActivity)
	register(acts.WriteConclusion, activities.WriteConclusionActivity)
	register(acts.UpdateSessionPersonas, activities.UpdateSessionPersonasActivity)
	register(acts.UpdateSessionPhase, activities.UpdateSessionPhaseActivity)
	register(acts.RecordTokenUsage, activities.RecordTokenUsageActivity)
	register(acts.CompleteSession, activities.CompleteSessionActivity)
}
