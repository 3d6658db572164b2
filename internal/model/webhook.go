package model

// WebhookPayload is the body of a GoHighLevel "opportunity changed" webhook.
// Field casing varies between workflow versions, so both spellings of the
// pipeline ID are accepted.
type WebhookPayload struct {
	ID              string         `json:"id"`
	PipelineID      string         `json:"pipelineId"`
	PipelineIDSnake string         `json:"pipeline_id"`
	CustomData      map[string]any `json:"customData"`
}

func (p *WebhookPayload) Pipeline() string {
	if p.PipelineID != "" {
		return p.PipelineID
	}
	return p.PipelineIDSnake
}

// loanAmountKeys are the customData spellings users configure in GHL
// workflows.
var loanAmountKeys = []string{"loan-amount", "loan_amount", "Loan Amount", "loan amount"}

// LoanAmount returns the loan amount carried in the webhook's custom data,
// if present. It lets the webhook path work even when the API read of the
// custom field lags the workflow trigger.
func (p *WebhookPayload) LoanAmount() (any, bool) {
	for _, key := range loanAmountKeys {
		if v, ok := p.CustomData[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
