package domain

import "time"

// ModelInfo describes the engine that produced a classification or draft.
type ModelInfo struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	PromptVersion string `json:"promptVersion"`
	LatencyMs     int64  `json:"latencyMs"`
}

// AgentSuggestion is the immutable artifact of one successful triage run.
type AgentSuggestion struct {
	ID                string
	TicketID          string
	TraceID           string
	PredictedCategory Category
	ArticleIDs        []string
	DraftReply        string
	Confidence        float64
	AutoClosed        bool
	ModelInfo         ModelInfo
	CreatedAt         time.Time
}
