package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/service"
	"github.com/spec-kit/helpdesk-triage/internal/triage"
)

// TriageRequest payload for manual re-triage.
type TriageRequest struct {
	TicketID string `json:"ticket_id"`
}

// TriageResponse mirrors a run result.
type TriageResponse struct {
	Success    bool                `json:"success"`
	TicketID   string              `json:"ticket_id"`
	TraceID    string              `json:"trace_id"`
	Action     triage.Action       `json:"action,omitempty"`
	Suggestion *SuggestionResponse `json:"suggestion,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// SuggestionResponse is a stored suggestion.
type SuggestionResponse struct {
	ID                string                    `json:"id"`
	TicketID          string                    `json:"ticket_id"`
	TraceID           string                    `json:"trace_id"`
	PredictedCategory domain.Category           `json:"predicted_category"`
	ArticleIDs        []string                  `json:"article_ids"`
	Articles          []domain.ArticleReference `json:"articles,omitempty"`
	DraftReply        string                    `json:"draft_reply"`
	Confidence        float64                   `json:"confidence"`
	AutoClosed        bool                      `json:"auto_closed"`
	ModelInfo         domain.ModelInfo          `json:"model_info"`
	CreatedAt         time.Time                 `json:"created_at"`
}

// NewTriageResponse projects res.
func NewTriageResponse(res triage.Result) TriageResponse {
	out := TriageResponse{
		Success:  res.Success,
		TicketID: res.TicketID,
		TraceID:  res.TraceID,
		Action:   res.Action,
		Error:    res.Error,
	}
	if v := res.Suggestion; v != nil {
		out.Suggestion = &SuggestionResponse{
			ID:                v.ID,
			TicketID:          v.TicketID,
			TraceID:           v.TraceID,
			PredictedCategory: v.PredictedCategory,
			ArticleIDs:        v.ArticleIDs,
			DraftReply:        v.DraftReply,
			Confidence:        v.Confidence,
			AutoClosed:        v.AutoClosed,
			ModelInfo:         v.ModelInfo,
			CreatedAt:         v.CreatedAt,
		}
	}
	return out
}

// NewSuggestionResponse projects details.
func NewSuggestionResponse(details *service.SuggestionDetails) SuggestionResponse {
	s := details.Suggestion
	ids := s.ArticleIDs
	if ids == nil {
		ids = []string{}
	}
	articles := details.Articles
	if articles == nil {
		articles = []domain.ArticleReference{}
	}
	return SuggestionResponse{
		ID:                s.ID,
		TicketID:          s.TicketID,
		TraceID:           s.TraceID,
		PredictedCategory: s.PredictedCategory,
		ArticleIDs:        ids,
		Articles:          articles,
		DraftReply:        s.DraftReply,
		Confidence:        s.Confidence,
		AutoClosed:        s.AutoClosed,
		ModelInfo:         s.ModelInfo,
		CreatedAt:         s.CreatedAt,
	}
}
