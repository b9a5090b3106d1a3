// Package fallback runs the last-resort external agent and validates what it
// proposes. The agent may draft outbound messages but nothing it asks to send
// is ever treated as sent.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/mosaic-money/internal/common"
	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/shopspring/decimal"
)

// Limits and defaults.
const (
	DefaultTimeout       = 8 * time.Second
	MinTimeout           = 1 * time.Second
	MaxTimeout           = 60 * time.Second
	DefaultMinConfidence = 0.70
	DefaultMaxProposals  = 3
)

// Status is the terminal state of a fallback run.
type Status string

// Fallback statuses.
const (
	StatusDisabled               Status = "disabled"
	StatusInvalidRequest         Status = "invalid_request"
	StatusTimeout                Status = "timeout"
	StatusSchemaValidationFailed Status = "schema_validation_failed"
	StatusExecutionFailed        Status = "execution_failed"
	StatusOK                     Status = "ok"
	StatusOKNoProposals          Status = "ok_no_proposals"
)

// Candidate is a subcategory the agent may choose from.
type Candidate struct {
	Name          string `json:"name"`
	SubcategoryID int64  `json:"subcategoryId"`
}

// ScoredCandidate is a subcategory an earlier stage scored.
type ScoredCandidate struct {
	SubcategoryID int64   `json:"subcategoryId"`
	Score         float64 `json:"score"`
}

// DeterministicContext is what rule matching concluded.
type DeterministicContext struct {
	ProposedSubcategoryID *int64            `json:"proposedSubcategoryId"`
	RationaleCode         string            `json:"rationaleCode"`
	Candidates            []ScoredCandidate `json:"candidates"`
	Confidence            float64           `json:"confidence"`
}

// SemanticContext is what retrieval found and how fusion read it.
type SemanticContext struct {
	Status       string            `json:"status"`
	FusionReason string            `json:"fusionReason"`
	Candidates   []ScoredCandidate `json:"candidates"`
}

// Request is sent to the agent as JSON. Semantic is nil when retrieval
// was not attempted.
type Request struct {
	Amount           decimal.Decimal      `json:"amount"`
	Semantic         *SemanticContext     `json:"semantic"`
	TransactionID    string               `json:"transactionId"`
	Date             string               `json:"date"`
	Description      string               `json:"description"`
	EscalationReason string               `json:"escalationReason"`
	Candidates       []Candidate          `json:"candidates"`
	Deterministic    DeterministicContext `json:"deterministic"`
}

// Result is the validated outcome of one agent run.
type Result struct {
	Status            Status
	Error             string
	Proposals         []model.FallbackProposal
	Rejected          int
	DeniedSendActions int
}

// Config tunes the service. Out of range values are clamped by NewService.
type Config struct {
	Enabled       bool
	Timeout       time.Duration
	MinConfidence float64
	MaxProposals  int
}

// Service validates and filters agent proposals.
type Service struct {
	runtime Runtime
	cfg     Config
}

// NewService creates a fallback service.
func NewService(runtime Runtime, cfg Config) *Service {
	return &Service{runtime: runtime, cfg: NormalizeConfig(cfg)}
}

// NormalizeConfig applies defaults and clamps limits.
func NormalizeConfig(cfg Config) Config {
	switch {
	case cfg.Timeout == 0:
		cfg.Timeout = DefaultTimeout
	case cfg.Timeout < MinTimeout:
		cfg.Timeout = MinTimeout
	case cfg.Timeout > MaxTimeout:
		cfg.Timeout = MaxTimeout
	}
	// The floor lives in (0, 1]; unset or negative means the default.
	if math.IsNaN(cfg.MinConfidence) || cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	cfg.MinConfidence = math.Min(1, cfg.MinConfidence)
	if cfg.MaxProposals <= 0 {
		cfg.MaxProposals = DefaultMaxProposals
	}
	return cfg
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

type response struct {
	Proposals *[]wireProposal `json:"proposals"`
}

type wireProposal struct {
	SubcategoryID  *int64   `json:"subcategoryId"`
	Confidence     *float64 `json:"confidence"`
	RationaleCode  string   `json:"rationaleCode"`
	Rationale      string   `json:"rationale"`
	AgentNote      string   `json:"agentNote"`
	ProposedAction string   `json:"proposedAction"`
	DraftMessage   string   `json:"draftMessage"`
}

// Execute runs the agent once. Failures are reported in the result status;
// nothing is retried here.
func (s *Service) Execute(ctx context.Context, req Request) Result {
	if !s.cfg.Enabled || s.runtime == nil {
		return Result{Status: StatusDisabled}
	}
	if strings.TrimSpace(req.TransactionID) == "" || len(req.Candidates) == 0 {
		return Result{Status: StatusInvalidRequest, Error: "request needs a transaction id and at least one candidate"}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Result{Status: StatusInvalidRequest, Error: err.Error()}
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.runtime.Invoke(runCtx, payload)
	if err != nil {
		status := StatusExecutionFailed
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			status = StatusTimeout
		}
		common.LogWarn(ctx, "fallback agent did not complete", common.Fields{
			"transaction_id": req.TransactionID,
			"status":         string(status),
			"elapsed":        time.Since(start).String(),
			"error":          err.Error(),
		})
		return Result{Status: status, Error: err.Error()}
	}

	proposals, err := decode(raw)
	if err != nil {
		return Result{Status: StatusSchemaValidationFailed, Error: err.Error()}
	}

	result := s.filter(req, proposals)
	if result.DeniedSendActions > 0 {
		common.LogWarn(ctx, "fallback agent requested outbound actions", common.Fields{
			"transaction_id": req.TransactionID,
			"denied":         result.DeniedSendActions,
		})
	}
	return result
}

func decode(raw []byte) ([]wireProposal, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var resp response
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("invalid agent response: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid agent response: trailing data after JSON object")
	}
	if resp.Proposals == nil {
		return nil, errors.New("invalid agent response: missing proposals")
	}
	return *resp.Proposals, nil
}

func (s *Service) filter(req Request, raw []wireProposal) Result {
	allowed := make(map[int64]struct{}, len(req.Candidates))
	for _, c := range req.Candidates {
		allowed[c.SubcategoryID] = struct{}{}
	}

	var result Result
	best := make(map[int64]model.FallbackProposal)
	for _, p := range raw {
		if IsDeniedAction(p.ProposedAction) {
			result.DeniedSendActions++
			continue
		}
		proposal, ok := s.validate(p, allowed)
		if !ok {
			result.Rejected++
			continue
		}
		if cur, seen := best[proposal.SubcategoryID]; seen && !outranks(proposal, cur) {
			continue
		}
		best[proposal.SubcategoryID] = proposal
	}

	proposals := make([]model.FallbackProposal, 0, len(best))
	for _, p := range best {
		proposals = append(proposals, p)
	}
	sort.Slice(proposals, func(i, j int) bool {
		if proposals[i].Confidence != proposals[j].Confidence {
			return proposals[i].Confidence > proposals[j].Confidence
		}
		return proposals[i].SubcategoryID < proposals[j].SubcategoryID
	})
	if len(proposals) > s.cfg.MaxProposals {
		proposals = proposals[:s.cfg.MaxProposals]
	}

	result.Proposals = proposals
	result.Status = StatusOK
	if len(proposals) == 0 {
		result.Status = StatusOKNoProposals
	}
	return result
}

func (s *Service) validate(p wireProposal, allowed map[int64]struct{}) (model.FallbackProposal, bool) {
	if p.SubcategoryID == nil || p.Confidence == nil {
		return model.FallbackProposal{}, false
	}
	if _, ok := allowed[*p.SubcategoryID]; !ok {
		return model.FallbackProposal{}, false
	}
	c := *p.Confidence
	if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 || c > 1 {
		return model.FallbackProposal{}, false
	}
	confidence := model.RoundConfidence(c)
	if confidence < s.cfg.MinConfidence {
		return model.FallbackProposal{}, false
	}
	if strings.TrimSpace(p.RationaleCode) == "" || strings.TrimSpace(p.Rationale) == "" {
		return model.FallbackProposal{}, false
	}
	return model.FallbackProposal{
		SubcategoryID:  *p.SubcategoryID,
		Confidence:     confidence,
		RationaleCode:  strings.TrimSpace(p.RationaleCode),
		Rationale:      p.Rationale,
		AgentNote:      p.AgentNote,
		ProposedAction: p.ProposedAction,
		DraftMessage:   p.DraftMessage,
	}, true
}

// outranks reports whether a should replace b for the same subcategory.
func outranks(a, b model.FallbackProposal) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.RationaleCode < b.RationaleCode
}
