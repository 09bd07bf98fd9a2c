package triage

import (
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-triage/internal/observability"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
)

// PipelineConfig configures NewPipeline.
type PipelineConfig struct {
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Tracer       *observability.Tracer
	StageTimeout time.Duration
	Classifier   []ClassifierOption
}

// NewPipeline wires the default stages onto repos.
func NewPipeline(repos repository.Repositories, cfg PipelineConfig) *Orchestrator {
	classifier := NewKeywordClassifier(cfg.Classifier...)
	return NewOrchestrator(Dependencies{
		Tickets:      repos.Tickets,
		Settings:     repos.Settings,
		Classifier:   classifier,
		Retriever:    NewKBRetriever(repos.Articles, cfg.Logger, cfg.Metrics),
		Drafter:      NewTemplateDrafter(classifier),
		Decider:      NewDecisionEngine(repos.Tickets, repos.Suggestions),
		Audit:        NewAuditLogger(repos.Audit, cfg.Logger, cfg.Metrics),
		Logger:       cfg.Logger,
		Metrics:      cfg.Metrics,
		Tracer:       cfg.Tracer,
		StageTimeout: cfg.StageTimeout,
	})
}
