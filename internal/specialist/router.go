package specialist

import (
	"fmt"

	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/Veraticus/mosaic-money/internal/policy"
)

// Router selects a lane for an escalated transaction and resolves it against
// the injected lane lookup.
type Router struct {
	lanes    LaneLookup
	detector *Detector
	enabled  bool
}

// NewRouter creates a router. When enabled is false every transaction stays
// on the categorization lane with semantic and fallback stages allowed.
func NewRouter(lanes LaneLookup, detector *Detector, enabled bool) *Router {
	return &Router{lanes: lanes, detector: detector, enabled: enabled}
}

// NewDefaultRouter wires the default registry and keyword patterns.
func NewDefaultRouter(enabled bool) (*Router, error) {
	detector, err := NewDetector(DefaultPatterns())
	if err != nil {
		return nil, err
	}
	return NewRouter(DefaultRegistry(), detector, enabled), nil
}

// SelectLane picks the requested lane for a transaction.
func (r *Router) SelectLane(det model.DeterministicResult, txn *model.Transaction) (model.SpecialistLane, string) {
	if det.IsConflict {
		return model.LaneAnomaly, "deterministic rules conflict"
	}

	var match *Match
	if r.detector != nil && txn != nil {
		match = r.detector.Detect(txn.Description)
	}
	if match != nil && match.Lane != model.LaneIncome {
		return match.Lane, fmt.Sprintf("keyword %q", match.Keyword)
	}
	if txn != nil && txn.Amount.IsPositive() {
		return model.LaneIncome, "positive amount"
	}
	if match != nil {
		return match.Lane, fmt.Sprintf("keyword %q", match.Keyword)
	}
	return model.LaneCategorization, "no specialist keywords"
}

// Route decides which lane owns the transaction after fusion.
func (r *Router) Route(fused model.FusionDecision, det model.DeterministicResult, txn *model.Transaction) model.SpecialistRoutingDecision {
	if fused.Decision == model.DecisionCategorized {
		return r.categorization(model.ReasonRoutingNotRequired, "Upstream stages categorized the transaction.")
	}
	if !r.enabled {
		return r.categorization(model.ReasonRoutingDisabled, "Specialist routing is disabled; staying on the categorization lane.")
	}

	requested, why := r.SelectLane(det, txn)

	lane, ok := r.lookup(requested)
	if !ok || !lane.Enabled {
		state := "not registered"
		if ok {
			state = "disabled"
		}
		return model.SpecialistRoutingDecision{
			RequestedLane:    requested,
			EffectiveLane:    model.LaneCategorization,
			ReasonCode:       model.ReasonLaneUnavailable,
			Rationale:        fmt.Sprintf("Lane %s (%s) is %s; holding for human review.", requested, why, state),
			ForceNeedsReview: true,
		}
	}

	if requested != model.LaneCategorization {
		return model.SpecialistRoutingDecision{
			RequestedLane:    requested,
			EffectiveLane:    requested,
			SpecialistID:     lane.SpecialistID,
			ReasonCode:       model.ReasonLaneHandoff,
			Rationale:        fmt.Sprintf("Handed off to %s (%s).", lane.SpecialistID, why),
			ForceNeedsReview: true,
		}
	}

	return model.SpecialistRoutingDecision{
		RequestedLane: requested,
		EffectiveLane: requested,
		SpecialistID:  lane.SpecialistID,
		ReasonCode:    model.ReasonCategorizationLane,
		Rationale:     "Categorization lane owns the transaction.",
		AllowSemantic: lane.AllowSemantic,
		AllowFallback: lane.AllowFallback,
	}
}

func (r *Router) categorization(reason, rationale string) model.SpecialistRoutingDecision {
	d := model.SpecialistRoutingDecision{
		RequestedLane: model.LaneCategorization,
		EffectiveLane: model.LaneCategorization,
		ReasonCode:    reason,
		Rationale:     rationale,
		AllowSemantic: true,
		AllowFallback: true,
	}
	if lane, ok := r.lookup(model.LaneCategorization); ok {
		d.SpecialistID = lane.SpecialistID
	}
	return d
}

func (r *Router) lookup(key model.SpecialistLane) (Lane, bool) {
	if r.lanes == nil {
		return Lane{}, false
	}
	return r.lanes.Lookup(key)
}

// Apply folds a routing decision into the fused decision. A forced review
// replaces the fusion reason with the routing reason and stops escalation to
// the fallback stage.
func Apply(fused model.FusionDecision, routing model.SpecialistRoutingDecision) model.FusionDecision {
	if routing.ForceNeedsReview {
		v := policy.Escalate(fused.ReviewStatus, routing.ReasonCode, routing.Rationale)
		fused.Decision = v.Decision
		fused.ReviewStatus = v.ReviewStatus
		fused.ReasonCode = v.ReasonCode
		fused.Rationale = v.Rationale
		fused.EscalatedToNextStage = false
		return fused
	}
	if fused.Decision == model.DecisionCategorized {
		return fused
	}
	fused.EscalatedToNextStage = fused.EscalatedToNextStage && routing.AllowFallback
	return fused
}
