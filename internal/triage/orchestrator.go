// Package triage runs the ticket triage pipeline: classify, retrieve KB
// articles, draft a reply and decide between auto-close and escalation.
package triage

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/observability"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
)

// Stage names used in spans, metrics and TRIAGE_FAILED meta.
const (
	StageLoad     = "load"
	StageClassify = "classify"
	StageRetrieve = "retrieve"
	StageDraft    = "draft"
	StageDecide   = "decide"
)

// Classifier maps ticket text to a category.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// Retriever finds candidate articles. It must not fail the run.
type Retriever interface {
	Retrieve(ctx context.Context, ticket *domain.Ticket, cls Classification) Retrieval
}

// Drafter composes a reply from a ticket and its candidate articles.
type Drafter interface {
	Draft(ctx context.Context, ticket *domain.Ticket, articles []domain.CandidateArticle) (Draft, error)
}

// Decider applies policy and persists the outcome.
type Decider interface {
	Decide(ctx context.Context, in DecisionInput) (Decision, error)
}

// Auditor appends audit entries without reporting failures.
type Auditor interface {
	Log(ctx context.Context, ticketID, traceID string, actor domain.AuditActor, action domain.AuditAction, meta map[string]any)
}

// SettingsSource yields the current tunables.
type SettingsSource interface {
	Get(ctx context.Context) (domain.TriageSettings, error)
}

// Dependencies wires an Orchestrator. Nil optional fields get defaults.
type Dependencies struct {
	Tickets      repository.TicketRepository
	Settings     SettingsSource
	Classifier   Classifier
	Retriever    Retriever
	Drafter      Drafter
	Decider      Decider
	Audit        Auditor
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Tracer       *observability.Tracer
	StageTimeout time.Duration
	NewTraceID   func() string
}

// SuggestionView is the caller-facing projection of an AgentSuggestion.
type SuggestionView struct {
	ID                string           `json:"id"`
	TicketID          string           `json:"ticketId"`
	TraceID           string           `json:"traceId"`
	PredictedCategory domain.Category  `json:"predictedCategory"`
	ArticleIDs        []string         `json:"articleIds"`
	DraftReply        string           `json:"draftReply"`
	Confidence        float64          `json:"confidence"`
	AutoClosed        bool             `json:"autoClosed"`
	ModelInfo         domain.ModelInfo `json:"modelInfo"`
	CreatedAt         time.Time        `json:"createdAt"`
}

// NewSuggestionView projects s.
func NewSuggestionView(s *domain.AgentSuggestion) *SuggestionView {
	if s == nil {
		return nil
	}
	ids := s.ArticleIDs
	if ids == nil {
		ids = []string{}
	}
	return &SuggestionView{
		ID:                s.ID,
		TicketID:          s.TicketID,
		TraceID:           s.TraceID,
		PredictedCategory: s.PredictedCategory,
		ArticleIDs:        ids,
		DraftReply:        s.DraftReply,
		Confidence:        s.Confidence,
		AutoClosed:        s.AutoClosed,
		ModelInfo:         s.ModelInfo,
		CreatedAt:         s.CreatedAt,
	}
}

// Result is returned from every run, successful or not.
type Result struct {
	Success    bool            `json:"success"`
	TicketID   string          `json:"ticketId"`
	TraceID    string          `json:"traceId"`
	Suggestion *SuggestionView `json:"suggestion,omitempty"`
	Action     Action          `json:"action,omitempty"`
	Error      string          `json:"error,omitempty"`
	Err        error           `json:"-"`
}

// Orchestrator sequences the stages of one run and contains their failures.
// It holds no per-run state and is safe for concurrent use.
type Orchestrator struct {
	tickets      repository.TicketRepository
	settings     SettingsSource
	classifier   Classifier
	retriever    Retriever
	drafter      Drafter
	decider      Decider
	audit        Auditor
	logger       *zap.Logger
	metrics      *observability.Metrics
	tracer       *observability.Tracer
	stageTimeout time.Duration
	newTraceID   func() string
}

// NewOrchestrator builds an Orchestrator from deps.
func NewOrchestrator(deps Dependencies) *Orchestrator {
	o := &Orchestrator{
		tickets:      deps.Tickets,
		settings:     deps.Settings,
		classifier:   deps.Classifier,
		retriever:    deps.Retriever,
		drafter:      deps.Drafter,
		decider:      deps.Decider,
		audit:        deps.Audit,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		tracer:       deps.Tracer,
		stageTimeout: deps.StageTimeout,
		newTraceID:   deps.NewTraceID,
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.newTraceID == nil {
		o.newTraceID = uuid.NewString
	}
	return o
}

// Run triages one ticket under a fresh trace id. It never panics on stage
// failures; the outcome is always described by the returned Result.
func (o *Orchestrator) Run(ctx context.Context, ticketID string) Result {
	traceID := o.newTraceID()
	ctx, span := o.tracer.StartRunSpan(ctx, ticketID, traceID)
	log := o.logger.With(zap.String("ticket_id", ticketID), zap.String("trace_id", traceID))
	log.Info("triage started")

	decision, err := o.run(ctx, ticketID, traceID)
	if err != nil {
		message := err.Error()
		if errors.Is(err, ErrTicketNotFound) {
			message = ErrTicketNotFound.Error()
		}
		stage := stageOf(err)
		log.Error("triage failed", zap.String("stage", stage), zap.Error(err))
		if ticketID != "" {
			o.audit.Log(ctx, ticketID, traceID, domain.ActorSystem, domain.ActionTriageFailed, map[string]any{
				"error": message,
				"stage": stage,
			})
		}
		o.metrics.RecordRun("failed")
		observability.EndSpan(span, err)
		return Result{TicketID: ticketID, TraceID: traceID, Error: message, Err: err}
	}

	span.SetAttributes(
		attribute.String(observability.AttrAction, string(decision.Action)),
		attribute.Float64(observability.AttrConfidence, decision.Suggestion.Confidence),
	)
	o.metrics.RecordRun(string(decision.Action))
	log.Info("triage completed",
		zap.String("action", string(decision.Action)),
		zap.Float64("confidence", decision.Suggestion.Confidence),
	)
	observability.EndSpan(span, nil)
	return Result{
		Success:    true,
		TicketID:   ticketID,
		TraceID:    traceID,
		Suggestion: NewSuggestionView(decision.Suggestion),
		Action:     decision.Action,
	}
}

func (o *Orchestrator) run(ctx context.Context, ticketID, traceID string) (Decision, error) {
	var (
		ticket   *domain.Ticket
		settings domain.TriageSettings
	)
	err := o.stage(ctx, StageLoad, func(ctx context.Context) error {
		t, err := o.tickets.GetByID(ctx, ticketID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTicketNotFound
		}
		if err != nil {
			return fmt.Errorf("load ticket: %w", err)
		}
		s, err := o.settings.Get(ctx)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		ticket, settings = t, s
		return nil
	})
	if err != nil {
		return Decision{}, err
	}
	o.audit.Log(ctx, ticket.ID, traceID, domain.ActorSystem, domain.ActionTicketCreated, map[string]any{
		"title":    ticket.Title,
		"category": string(ticket.Category),
	})

	var cls Classification
	err = o.stage(ctx, StageClassify, func(ctx context.Context) error {
		var err error
		cls, err = o.classifier.Classify(ctx, ticket.Text())
		return err
	})
	if err != nil {
		return Decision{}, err
	}
	o.audit.Log(ctx, ticket.ID, traceID, domain.ActorSystem, domain.ActionAgentClassified, map[string]any{
		"predictedCategory": string(cls.Category),
		"confidence":        cls.Confidence,
		"originalCategory":  string(ticket.Category),
	})

	var retrieval Retrieval
	_ = o.stage(ctx, StageRetrieve, func(ctx context.Context) error {
		retrieval = o.retriever.Retrieve(ctx, ticket, cls)
		return nil
	})
	o.audit.Log(ctx, ticket.ID, traceID, domain.ActorSystem, domain.ActionKBRetrieved, retrievalMeta(retrieval))

	var draft Draft
	err = o.stage(ctx, StageDraft, func(ctx context.Context) error {
		var err error
		draft, err = o.drafter.Draft(ctx, ticket, retrieval.Articles)
		return err
	})
	if err != nil {
		return Decision{}, err
	}
	o.audit.Log(ctx, ticket.ID, traceID, domain.ActorSystem, domain.ActionDraftGenerated, draftMeta(draft))
	o.metrics.ObserveConfidence(string(draft.Category), draft.Confidence)

	var decision Decision
	err = o.stage(ctx, StageDecide, func(ctx context.Context) error {
		var err error
		decision, err = o.decider.Decide(ctx, DecisionInput{
			TraceID:        traceID,
			Ticket:         ticket,
			Classification: cls,
			Draft:          draft,
			Settings:       settings,
		})
		return err
	})
	if err != nil {
		return Decision{}, err
	}

	if decision.Action == ActionAutoClosed {
		o.audit.Log(ctx, ticket.ID, traceID, domain.ActorSystem, domain.ActionAutoClosed, map[string]any{
			"confidence":             decision.Suggestion.Confidence,
			"suggestionId":           decision.Suggestion.ID,
			"articleReferencesAdded": len(draft.CitedArticles),
		})
	} else {
		o.audit.Log(ctx, ticket.ID, traceID, domain.ActorSystem, domain.ActionAssignedToHuman, map[string]any{
			"confidence":   decision.Suggestion.Confidence,
			"suggestionId": decision.Suggestion.ID,
		})
	}
	return decision, nil
}

// stage runs fn under the per-stage deadline with its own span and latency sample.
func (o *Orchestrator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if o.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.stageTimeout)
		defer cancel()
	}
	ctx, span := o.tracer.StartStageSpan(ctx, name)
	start := time.Now()
	err := fn(ctx)
	o.metrics.ObserveStage(name, time.Since(start))
	observability.EndSpan(span, err)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ErrStageTimeout, err)
	}
	if err != nil {
		return &StageError{Stage: name, Err: err}
	}
	return nil
}

func retrievalMeta(r Retrieval) map[string]any {
	if r.Err != nil {
		return map[string]any{
			"articlesFound": 0,
			"error":         r.Err.Error(),
		}
	}
	titles := make([]string, 0, len(r.Articles))
	for _, a := range r.Articles {
		titles = append(titles, a.Title)
	}
	return map[string]any{
		"articlesFound": len(r.Articles),
		"searchQuery":   r.Query,
		"articleTitles": titles,
		"searchTerms":   r.Terms,
	}
}

func draftMeta(d Draft) map[string]any {
	used := make([]map[string]string, 0, len(d.CitedArticles))
	for _, a := range d.CitedArticles {
		used = append(used, map[string]string{"id": a.ID, "title": a.Title})
	}
	return map[string]any{
		"draftLength":    utf8.RuneCountInString(d.ReplyText),
		"citationsCount": len(d.Citations),
		"confidence":     d.Confidence,
		"articlesUsed":   used,
	}
}
