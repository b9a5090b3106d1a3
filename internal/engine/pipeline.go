// Package engine runs the staged classification pipeline for a transaction
// and persists its audited outcome.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/mosaic-money/internal/classification"
	"github.com/Veraticus/mosaic-money/internal/common"
	"github.com/Veraticus/mosaic-money/internal/fallback"
	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/Veraticus/mosaic-money/internal/policy"
	"github.com/Veraticus/mosaic-money/internal/sanitize"
	"github.com/Veraticus/mosaic-money/internal/semantic"
	"github.com/Veraticus/mosaic-money/internal/service"
	"github.com/Veraticus/mosaic-money/internal/specialist"
	"github.com/google/uuid"
)

// Pipeline classifies transactions one at a time. It keeps no per-run state
// and is safe for concurrent use.
type Pipeline struct {
	store         service.TransactionStore
	deterministic *classification.Engine
	retriever     *semantic.Retriever
	router        *specialist.Router
	fallback      *fallback.Service
	readiness     *ReadinessGate
	now           func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRetriever sets the semantic retriever.
func WithRetriever(r *semantic.Retriever) Option {
	return func(p *Pipeline) { p.retriever = r }
}

// WithRouter sets the specialist router.
func WithRouter(r *specialist.Router) Option {
	return func(p *Pipeline) { p.router = r }
}

// WithFallback sets the fallback agent service.
func WithFallback(s *fallback.Service) Option {
	return func(p *Pipeline) { p.fallback = s }
}

// WithReadinessGate enables the taxonomy readiness check.
func WithReadinessGate(g *ReadinessGate) Option {
	return func(p *Pipeline) { p.readiness = g }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline. Without options semantic retrieval reports
// no provider, routing is disabled and the fallback agent is off.
func NewPipeline(store service.TransactionStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:         store,
		deterministic: classification.NewEngine(),
		retriever:     semantic.NewRetriever(nil, semantic.Config{}),
		router:        specialist.NewRouter(specialist.DefaultRegistry(), nil, false),
		fallback:      fallback.NewService(nil, fallback.Config{}),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run carries the intermediate decisions of one classification.
type run struct {
	txn        *model.Transaction
	candidates []model.Candidate
	stages     []model.StageOutput
	pre        model.ReviewStatus
	producedAt time.Time
}

func (r *run) record(stage model.ClassificationStage, proposed *int64, confidence float64, code, rationale string, escalated bool) {
	r.stages = append(r.stages, model.StageOutput{
		ID:                    uuid.NewString(),
		Stage:                 stage,
		StageOrder:            len(r.stages) + 1,
		ProposedSubcategoryID: proposed,
		Confidence:            model.RoundConfidence(confidence),
		RationaleCode:         code,
		Rationale:             sanitize.Rationale(rationale),
		EscalatedToNextStage:  escalated,
		ProducedAt:            r.producedAt,
	})
}

// final is the decision the pipeline persists.
type final struct {
	policy.Verdict
	proposed   *int64
	agentNote  string
	assignee   string
	confidence float64
}

// Run classifies one transaction and persists the outcome together with the
// transaction update. Nothing is persisted if ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, transactionID string) (*model.ClassificationOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn, err := p.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", transactionID, err)
	}
	candidates, err := p.store.GetCandidates(ctx, txn.Scope())
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates for %s: %w", transactionID, err)
	}

	r := &run{
		txn:        txn,
		candidates: candidates,
		pre:        txn.ReviewStatus,
		producedAt: p.now().UTC(),
	}

	decision, err := p.decide(ctx, r)
	if err != nil {
		return nil, err
	}

	outcome, mutation := p.assemble(r, decision)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.store.SaveOutcome(ctx, outcome, mutation); err != nil {
		return nil, fmt.Errorf("failed to save outcome for %s: %w", transactionID, err)
	}

	common.LogInfo(ctx, "transaction classified", common.Fields{
		"transaction_id": transactionID,
		"decision":       string(outcome.Decision),
		"reason":         outcome.ReasonCode,
		"confidence":     outcome.FinalConfidence,
		"stages":         len(outcome.Stages),
	})
	return outcome, nil
}

func (p *Pipeline) decide(ctx context.Context, r *run) (final, error) {
	readiness, err := p.readiness.Check(ctx, r.txn.Scope())
	if err != nil {
		return final{}, err
	}
	if !readiness.Ready {
		return final{Verdict: policy.Escalate(r.pre, model.ReasonTaxonomyNotReady, readiness.Reason)}, nil
	}

	det := p.deterministic.Classify(r.txn.Request(r.candidates))
	amb := policy.EvaluateAmbiguity(r.pre, det)
	r.record(model.StageDeterministic, det.ProposedSubcategoryID, det.Confidence, det.RationaleCode, det.Rationale,
		amb.Decision == model.DecisionNeedsReview)

	var sem *model.SemanticResult
	if amb.Decision == model.DecisionNeedsReview && r.pre != model.ReviewStatusNeedsReview {
		sem = p.retriever.Retrieve(ctx, r.txn.ID, r.txn.HouseholdID)
	}

	fused := policy.Fuse(amb, det, sem)
	if sem != nil && sem.Attempted {
		code, rationale := fused.ReasonCode, fused.Rationale
		proposed, confidence := fused.ProposedSubcategoryID, fused.Confidence
		switch {
		case sem.Status != model.SemanticStatusOK:
			code, rationale = model.SemanticStatusReason(sem.Status), sem.Error
			proposed, confidence = nil, 0
		case len(sem.Candidates) == 0:
			code, rationale = model.ReasonSemanticNoCandidates, "No categorized neighbors scored above the retrieval floor."
			proposed, confidence = nil, 0
		}
		r.record(model.StageSemantic, proposed, confidence, code, rationale, fused.EscalatedToNextStage)
	}

	routing := p.route(r, fused, det)
	routed := specialist.Apply(fused, routing)

	decision := final{
		Verdict: policy.Verdict{
			Decision:     routed.Decision,
			ReviewStatus: routed.ReviewStatus,
			ReasonCode:   routed.ReasonCode,
			Rationale:    routed.Rationale,
		},
		proposed:   routed.ProposedSubcategoryID,
		confidence: routed.Confidence,
		agentNote:  routed.AgentNote,
		assignee:   routing.SpecialistID,
	}

	eligibility := p.fallbackEligibility(r, sem, routed, routing)
	common.LogDebug(ctx, "fallback eligibility", common.Fields{
		"transaction_id": r.txn.ID,
		"lane":           string(routing.EffectiveLane),
		"eligible":       eligibility.Eligible,
		"reason":         eligibility.ReasonCode,
	})
	if !eligibility.Eligible || p.fallback == nil {
		return decision, nil
	}

	return p.runFallback(ctx, r, decision, fallbackRequest(r, det, sem, fused, routed)), nil
}

// fallbackRequest gives the agent the transaction, the allowed subcategories
// and what the earlier stages concluded.
func fallbackRequest(r *run, det model.DeterministicResult, sem *model.SemanticResult, fused, routed model.FusionDecision) fallback.Request {
	req := fallback.Request{
		TransactionID:    r.txn.ID,
		Date:             r.txn.Date.Format(time.DateOnly),
		Description:      r.txn.Description,
		Amount:           r.txn.Amount,
		EscalationReason: routed.ReasonCode,
		Candidates:       make([]fallback.Candidate, 0, len(r.candidates)),
		Deterministic: fallback.DeterministicContext{
			ProposedSubcategoryID: det.ProposedSubcategoryID,
			RationaleCode:         det.RationaleCode,
			Confidence:            det.Confidence,
			Candidates:            make([]fallback.ScoredCandidate, 0, len(det.Candidates)),
		},
	}
	for _, c := range r.candidates {
		req.Candidates = append(req.Candidates, fallback.Candidate{SubcategoryID: c.SubcategoryID, Name: c.Name})
	}
	for _, c := range det.Candidates {
		req.Deterministic.Candidates = append(req.Deterministic.Candidates,
			fallback.ScoredCandidate{SubcategoryID: c.SubcategoryID, Score: c.Confidence})
	}
	if sem != nil && sem.Attempted {
		req.Semantic = &fallback.SemanticContext{
			Status:       string(sem.Status),
			FusionReason: fused.ReasonCode,
			Candidates:   make([]fallback.ScoredCandidate, 0, len(sem.Candidates)),
		}
		for _, c := range sem.Candidates {
			req.Semantic.Candidates = append(req.Semantic.Candidates,
				fallback.ScoredCandidate{SubcategoryID: c.SubcategoryID, Score: c.Score})
		}
	}
	return req
}

func (p *Pipeline) route(r *run, fused model.FusionDecision, det model.DeterministicResult) model.SpecialistRoutingDecision {
	// A transaction already waiting for review keeps its existing reason.
	if r.pre == model.ReviewStatusNeedsReview || p.router == nil {
		return model.SpecialistRoutingDecision{
			RequestedLane: model.LaneCategorization,
			EffectiveLane: model.LaneCategorization,
			ReasonCode:    model.ReasonRoutingNotRequired,
			Rationale:     "Routing skipped.",
		}
	}
	return p.router.Route(fused, det, r.txn)
}

func (p *Pipeline) fallbackEligibility(r *run, sem *model.SemanticResult, routed model.FusionDecision, routing model.SpecialistRoutingDecision) model.FallbackEligibility {
	if routed.Decision == model.DecisionNeedsReview && r.pre != model.ReviewStatusNeedsReview && !routing.AllowFallback {
		return model.FallbackEligibility{
			ReasonCode: model.ReasonFallbackLaneDisallowed,
			Rationale:  fmt.Sprintf("Lane %s does not allow the fallback agent.", routing.EffectiveLane),
		}
	}
	attempted := sem != nil && sem.Attempted
	return policy.EvaluateFallbackEligibility(r.pre, attempted, routed)
}

func (p *Pipeline) runFallback(ctx context.Context, r *run, decision final, req fallback.Request) final {
	res := p.fallback.Execute(ctx, req)
	if res.Status == fallback.StatusDisabled {
		return decision
	}

	if res.Status == fallback.StatusOK {
		top := res.Proposals[0]
		rationale := fmt.Sprintf("Fallback agent proposed subcategory %d at %.4f (%s): %s",
			top.SubcategoryID, top.Confidence, top.RationaleCode, top.Rationale)
		r.record(model.StageFallbackAgent, model.SubcategoryPtr(top.SubcategoryID), top.Confidence,
			top.RationaleCode, rationale, false)

		decision.Verdict = policy.Escalate(r.pre, model.ReasonFallbackProposalPending, rationale)
		decision.proposed = model.SubcategoryPtr(top.SubcategoryID)
		decision.confidence = top.Confidence
		decision.agentNote = top.AgentNote
		return decision
	}

	code := "fallback_" + string(res.Status)
	rationale := fmt.Sprintf("Fallback agent finished with %s", res.Status)
	switch {
	case res.Error != "":
		rationale += ": " + res.Error
	case res.DeniedSendActions > 0:
		rationale += fmt.Sprintf("; %d outbound action(s) denied", res.DeniedSendActions)
	}
	r.record(model.StageFallbackAgent, nil, 0, code, rationale, false)

	decision.Verdict = policy.Escalate(r.pre, code, rationale)
	return decision
}

func (p *Pipeline) assemble(r *run, decision final) (*model.ClassificationOutcome, model.TransactionMutation) {
	v := policy.EnforceFailClosed(r.pre, decision.Verdict)

	proposed := decision.proposed
	if v.Decision == model.DecisionCategorized && proposed == nil {
		v = policy.Escalate(r.pre, model.ReasonFailClosed, "Categorized decision carried no subcategory.")
	}

	outcome := &model.ClassificationOutcome{
		ID:                    uuid.NewString(),
		TransactionID:         r.txn.ID,
		ProposedSubcategoryID: proposed,
		FinalConfidence:       model.RoundConfidence(decision.confidence),
		Decision:              v.Decision,
		ReviewStatus:          v.ReviewStatus,
		ReasonCode:            v.ReasonCode,
		Rationale:             sanitize.Rationale(v.Rationale),
		AgentNote:             sanitize.AgentNote(decision.agentNote),
		Stages:                r.stages,
		CreatedAt:             r.producedAt,
	}
	if outcome.Rationale == "" {
		outcome.Rationale = policy.DefaultEscalationRationale
	}

	mutation := model.TransactionMutation{
		TransactionID:   r.txn.ID,
		ExpectedVersion: r.txn.Version,
		ReviewStatus:    v.ReviewStatus,
		SubcategoryID:   r.txn.SubcategoryID,
	}
	switch v.Decision {
	case model.DecisionCategorized:
		mutation.SubcategoryID = proposed
	case model.DecisionNeedsReview:
		mutation.ReviewReason = v.ReasonCode
		mutation.ReviewAssignee = decision.assignee
		if mutation.ReviewAssignee == "" {
			mutation.ReviewAssignee = r.txn.ReviewAssignee
		}
	}

	return outcome, mutation
}
