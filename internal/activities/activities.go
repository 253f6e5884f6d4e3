package activities

import (
	"context"

	"go.uber.org/zap"

	"github.com/roundtable-ai/orchestrator/internal/db"
	"github.com/roundtable-ai/orchestrator/internal/research"
	"github.com/roundtable-ai/orchestrator/internal/session"
	"github.com/roundtable-ai/orchestrator/internal/tools"
)

// Gateway is the language-model capability activities depend on. Both calls
// return the token usage for that invocation; activities must propagate it.
type Gateway interface {
	Complete(ctx context.Context, messages []research.Message) (string, int, error)
	CompleteStructured(ctx context.Context, messages []research.Message, out interface{}) (int, error)
}

// Activities holds dependencies for all workflow activities.
type Activities struct {
	gateway  Gateway
	web      tools.Searcher
	wiki     tools.Searcher
	sessions session.Store
	archive  *db.Client
	logger   *zap.Logger
}

// NewActivities creates an activities instance with dependencies. The archive
// client may be nil when Postgres archiving is disabled.
func NewActivities(gateway Gateway, web, wiki tools.Searcher, sessions session.Store, archive *db.Client, logger *zap.Logger) *Activities {
	return &Activities{
		gateway:  gateway,
		web:      web,
		wiki:     wiki,
		sessions: sessions,
		archive:  archive,
		logger:   logger,
	}
}

// Activity names as registered on the worker. Workflows reference these
// constants rather than function values so tests can mock by name.
const (
	GeneratePersonasActivity      = "GeneratePersonas"
	GenerateSessionNameActivity   = "GenerateSessionName"
	GenerateQuestionActivity      = "GenerateQuestion"
	SearchWebActivity             = "SearchWeb"
	SearchWikipediaActivity       = "SearchWikipedia"
	GenerateAnswerActivity        = "GenerateAnswer"
	WriteSectionActivity          = "WriteSection"
	WriteReportActivity           = "WriteReport"
	WriteIntroductionActivity     = "WriteIntroduction"
	WriteConclusionActivity       = "WriteConclusion"
	UpdateSessionPersonasActivity = "UpdateSessionPersonas"
	UpdateSessionPhaseActivity    = "UpdateSessionPhase"
	RecordTokenUsageActivity      = "RecordTokenUsage"
	CompleteSessionActivity       = "CompleteSession"
)
