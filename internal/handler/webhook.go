package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loanops/commsync/internal/model"
	"github.com/loanops/commsync/internal/pkg/apperrors"
	"github.com/loanops/commsync/internal/pkg/logger"
	"github.com/loanops/commsync/internal/service"
	"github.com/shopspring/decimal"
)

// SingleReconciler is the slice of the reconciler the webhook needs.
type SingleReconciler interface {
	ReconcileByID(ctx context.Context, opportunityID, pipelineID string, loanOverride *decimal.Decimal) (model.Outcome, error)
}

type WebhookHandler struct {
	reconciler SingleReconciler
}

func NewWebhookHandler(reconciler SingleReconciler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// Handle processes a GHL "opportunity changed" webhook. Logic failures
// still return 200 so the CRM does not retry the delivery indefinitely;
// only an unusable payload gets a 400.
func (h *WebhookHandler) Handle(c *gin.Context) {
	var payload model.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.Error(apperrors.NewInvalidRequest("invalid JSON payload"))
		return
	}
	if payload.ID == "" {
		c.Error(apperrors.NewInvalidRequest("missing 'id' in payload"))
		return
	}

	var loanOverride *decimal.Decimal
	if raw, ok := payload.LoanAmount(); ok {
		if amount, parsed := service.ParseAmount(raw); parsed {
			loanOverride = &amount
		}
	}

	outcome, err := h.reconciler.ReconcileByID(c.Request.Context(), payload.ID, payload.Pipeline(), loanOverride)
	if err != nil {
		logger.Warn("Webhook processing failed",
			"opportunity_id", payload.ID, "outcome", outcome, "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "outcome": outcome})
}
