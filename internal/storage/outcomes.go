package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/mosaic-money/internal/model"
)

// SaveOutcome persists the outcome, its stage rows and the transaction
// mutation in one database transaction. A stale mutation version fails with
// common.ErrConcurrentUpdate and nothing is written.
func (s *SQLiteStorage) SaveOutcome(ctx context.Context, outcome *model.ClassificationOutcome, mutation model.TransactionMutation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateOutcome(outcome, mutation); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := applyMutationTx(ctx, tx, mutation); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO classification_outcomes (
				id, transaction_id, proposed_subcategory_id, final_confidence, decision,
				review_status, reason_code, rationale, agent_note, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			outcome.ID,
			outcome.TransactionID,
			nullableID(outcome.ProposedSubcategoryID),
			outcome.FinalConfidence,
			string(outcome.Decision),
			string(outcome.ReviewStatus),
			outcome.ReasonCode,
			outcome.Rationale,
			outcome.AgentNote,
			outcome.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert outcome %s: %w", outcome.ID, err)
		}

		if len(outcome.Stages) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO classification_stage_outputs (
				id, outcome_id, stage, stage_order, proposed_subcategory_id, confidence,
				rationale_code, rationale, escalated_to_next_stage, produced_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, stage := range outcome.Stages {
			_, err := stmt.ExecContext(ctx,
				stage.ID,
				outcome.ID,
				stage.Stage.String(),
				stage.StageOrder,
				nullableID(stage.ProposedSubcategoryID),
				stage.Confidence,
				stage.RationaleCode,
				stage.Rationale,
				stage.EscalatedToNextStage,
				stage.ProducedAt.UTC(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert %s stage output: %w", stage.Stage, err)
			}
		}
		return nil
	})
}

// GetOutcomes returns the audit trail of a transaction, oldest first, with
// each outcome's stage rows in stage order.
func (s *SQLiteStorage) GetOutcomes(ctx context.Context, transactionID string) ([]model.ClassificationOutcome, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, proposed_subcategory_id, final_confidence, decision,
			review_status, reason_code, rationale, agent_note, created_at
		FROM classification_outcomes
		WHERE transaction_id = ?
		ORDER BY created_at, rowid
	`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		outcomes []model.ClassificationOutcome
		index    = make(map[string]int)
	)
	for rows.Next() {
		var (
			o        model.ClassificationOutcome
			proposed sql.NullInt64
			decision string
			status   string
		)
		if err := rows.Scan(&o.ID, &o.TransactionID, &proposed, &o.FinalConfidence, &decision,
			&status, &o.ReasonCode, &o.Rationale, &o.AgentNote, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Decision = model.Decision(decision)
		o.ReviewStatus = model.ReviewStatus(status)
		if proposed.Valid {
			o.ProposedSubcategoryID = model.SubcategoryPtr(proposed.Int64)
		}
		index[o.ID] = len(outcomes)
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outcomes: %w", err)
	}
	if len(outcomes) == 0 {
		return outcomes, nil
	}

	stageRows, err := s.db.QueryContext(ctx, `
		SELECT so.id, so.outcome_id, so.stage, so.stage_order, so.proposed_subcategory_id, so.confidence,
			so.rationale_code, so.rationale, so.escalated_to_next_stage, so.produced_at
		FROM classification_stage_outputs so
		JOIN classification_outcomes o ON o.id = so.outcome_id
		WHERE o.transaction_id = ?
		ORDER BY so.outcome_id, so.stage_order
	`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage outputs: %w", err)
	}
	defer func() { _ = stageRows.Close() }()

	for stageRows.Next() {
		var (
			stage     model.StageOutput
			outcomeID string
			name      string
			proposed  sql.NullInt64
		)
		if err := stageRows.Scan(&stage.ID, &outcomeID, &name, &stage.StageOrder, &proposed, &stage.Confidence,
			&stage.RationaleCode, &stage.Rationale, &stage.EscalatedToNextStage, &stage.ProducedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage output: %w", err)
		}
		stage.Stage = parseStage(name)
		if proposed.Valid {
			stage.ProposedSubcategoryID = model.SubcategoryPtr(proposed.Int64)
		}
		i, ok := index[outcomeID]
		if !ok {
			continue
		}
		outcomes[i].Stages = append(outcomes[i].Stages, stage)
	}
	if err := stageRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stage outputs: %w", err)
	}

	return outcomes, nil
}

func parseStage(name string) model.ClassificationStage {
	for _, stage := range []model.ClassificationStage{
		model.StageDeterministic, model.StageSemantic, model.StageFallbackAgent,
	} {
		if stage.String() == name {
			return stage
		}
	}
	return 0
}
