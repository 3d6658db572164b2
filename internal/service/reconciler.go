package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/loanops/commsync/internal/config"
	"github.com/loanops/commsync/internal/ghl"
	"github.com/loanops/commsync/internal/model"
	"github.com/loanops/commsync/internal/pkg/apperrors"
	"github.com/loanops/commsync/internal/pkg/logger"
	"github.com/loanops/commsync/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

// DedupeStore suppresses duplicate webhook deliveries for the same
// opportunity within a short window. Redis-backed in production, in-memory
// otherwise.
type DedupeStore interface {
	Seen(ctx context.Context, opportunityID string) (bool, error)
	Mark(ctx context.Context, opportunityID string, ttl time.Duration) error
}

// Reconciler compares each opportunity's monetary value against the
// commission derived from its loan amount and writes the target value back
// when they differ. At most one outbound write per record per pass.
type Reconciler struct {
	client    ghl.Client
	rate      decimal.Decimal
	fieldKey  string
	history   *HistoryService
	dedupe    DedupeStore
	dedupeTTL time.Duration
}

func NewReconciler(cfg *config.Config, client ghl.Client, history *HistoryService, dedupe DedupeStore) *Reconciler {
	return &Reconciler{
		client:    client,
		rate:      decimal.NewFromFloat(cfg.Sync.CommissionRate),
		fieldKey:  cfg.GHL.LoanAmountFieldKey,
		history:   history,
		dedupe:    dedupe,
		dedupeTTL: cfg.Sync.WebhookDedupeTTL(),
	}
}

// Reconcile processes one opportunity. The returned outcome is always
// meaningful; the error is non-nil for invalid records (DATA_ERROR) and
// failed writes, and the caller decides whether it is fatal.
func (r *Reconciler) Reconcile(ctx context.Context, opp *model.Opportunity, cycleID string, src model.Source) (model.Outcome, error) {
	outcome, err := r.reconcile(ctx, opp, nil, cycleID, src)
	metrics.RecordsTotal.WithLabelValues(string(outcome), string(src)).Inc()
	return outcome, err
}

func (r *Reconciler) reconcile(ctx context.Context, opp *model.Opportunity, loanOverride *decimal.Decimal, cycleID string, src model.Source) (model.Outcome, error) {
	loan, ok := loanAmountFrom(opp, r.fieldKey)
	if !ok && loanOverride != nil {
		loan, ok = *loanOverride, true
	}
	if !ok || loan.LessThanOrEqual(decimal.Zero) {
		return model.OutcomeInvalid, apperrors.NewData(
			fmt.Sprintf("opportunity %s: no usable loan amount in field %q", opp.ID, r.fieldKey))
	}

	target := CommissionFor(loan, r.rate)
	if !NeedsUpdate(opp.MonetaryValue, target) {
		return model.OutcomeSkipped, nil
	}

	if err := r.client.UpdateOpportunityValue(ctx, opp.PipelineID, opp.ID, target); err != nil {
		return model.OutcomeFailed, err
	}

	previous := 0.0
	if opp.MonetaryValue != nil {
		previous = *opp.MonetaryValue
	}
	newValue := target.InexactFloat64()
	logger.Info("Opportunity value updated",
		"opportunity_id", opp.ID,
		"pipeline_id", opp.PipelineID,
		"loan_amount", loan.InexactFloat64(),
		"previous_value", previous,
		"new_value", newValue,
		"source", src)

	if r.history != nil {
		r.history.Record(&model.UpdateRecord{
			ID:            uuid.NewString(),
			CycleID:       cycleID,
			OpportunityID: opp.ID,
			PipelineID:    opp.PipelineID,
			Name:          opp.Name,
			LoanAmount:    loan.InexactFloat64(),
			PreviousValue: previous,
			NewValue:      newValue,
			Rate:          r.rate.InexactFloat64(),
			Source:        src,
			CreatedAt:     time.Now().UTC(),
		})
	}
	return model.OutcomeUpdated, nil
}

// ReconcileByID handles a single out-of-band reconcile, typically from an
// "opportunity changed" webhook. When the pipeline is known the record is
// fetched directly; otherwise all pipelines are scanned. A loan amount from
// the webhook payload overrides a missing custom field.
func (r *Reconciler) ReconcileByID(ctx context.Context, opportunityID, pipelineID string, loanOverride *decimal.Decimal) (model.Outcome, error) {
	if r.dedupe != nil && r.dedupeTTL > 0 {
		seen, err := r.dedupe.Seen(ctx, opportunityID)
		if err != nil {
			logger.Warn("Dedupe lookup failed, proceeding", "opportunity_id", opportunityID, "error", err)
		} else if seen {
			logger.Debug("Duplicate webhook suppressed", "opportunity_id", opportunityID)
			return model.OutcomeSkipped, nil
		}
	}

	opp, err := r.fetchOne(ctx, opportunityID, pipelineID)
	if err != nil {
		return model.OutcomeFailed, err
	}

	outcome, err := r.reconcile(ctx, opp, loanOverride, uuid.NewString(), model.SourceWebhook)
	metrics.RecordsTotal.WithLabelValues(string(outcome), string(model.SourceWebhook)).Inc()

	if outcome == model.OutcomeUpdated && r.dedupe != nil && r.dedupeTTL > 0 {
		if markErr := r.dedupe.Mark(ctx, opportunityID, r.dedupeTTL); markErr != nil {
			logger.Warn("Dedupe mark failed", "opportunity_id", opportunityID, "error", markErr)
		}
	}
	return outcome, err
}

func (r *Reconciler) fetchOne(ctx context.Context, opportunityID, pipelineID string) (*model.Opportunity, error) {
	// Fast path: pipeline known from the payload.
	if pipelineID != "" {
		opp, err := r.client.Opportunity(ctx, pipelineID, opportunityID)
		if err == nil {
			return opp, nil
		}
		if !apperrors.IsNotFound(err) {
			return nil, err
		}
		logger.Warn("Opportunity not in hinted pipeline, scanning all",
			"opportunity_id", opportunityID, "pipeline_id", pipelineID)
	}

	// Slow path: scan every pipeline.
	pipelines, err := r.client.Pipelines(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pipelines {
		opps, err := r.client.Opportunities(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for i := range opps {
			if opps[i].ID == opportunityID {
				if opps[i].PipelineID == "" {
					opps[i].PipelineID = p.ID
				}
				return &opps[i], nil
			}
		}
	}
	return nil, apperrors.NewNotFound(fmt.Sprintf("opportunity %s not found in any pipeline", opportunityID))
}
