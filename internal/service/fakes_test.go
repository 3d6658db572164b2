package service

import (
	"context"
	"sync"

	"github.com/loanops/commsync/internal/config"
	"github.com/loanops/commsync/internal/model"
	"github.com/loanops/commsync/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
)

// fakeClient implements ghl.Client against in-memory data.
type fakeClient struct {
	mu sync.Mutex

	pipelines     []model.Pipeline
	opportunities map[string][]model.Opportunity // by pipeline ID

	pipelinesErr error
	listErr      error
	updateErrFor map[string]error // by opportunity ID

	updates []updateCall
}

type updateCall struct {
	PipelineID    string
	OpportunityID string
	Value         decimal.Decimal
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		opportunities: make(map[string][]model.Opportunity),
		updateErrFor:  make(map[string]error),
	}
}

func (f *fakeClient) addOpportunity(pipelineID string, opp model.Opportunity) {
	opp.PipelineID = pipelineID
	found := false
	for _, p := range f.pipelines {
		if p.ID == pipelineID {
			found = true
			break
		}
	}
	if !found {
		f.pipelines = append(f.pipelines, model.Pipeline{ID: pipelineID, Name: pipelineID})
	}
	f.opportunities[pipelineID] = append(f.opportunities[pipelineID], opp)
}

func (f *fakeClient) Pipelines(ctx context.Context) ([]model.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pipelinesErr != nil {
		return nil, f.pipelinesErr
	}
	return append([]model.Pipeline(nil), f.pipelines...), nil
}

func (f *fakeClient) Opportunities(ctx context.Context, pipelineID string) ([]model.Opportunity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Opportunity(nil), f.opportunities[pipelineID]...), nil
}

func (f *fakeClient) Opportunity(ctx context.Context, pipelineID, opportunityID string) (*model.Opportunity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, opp := range f.opportunities[pipelineID] {
		if opp.ID == opportunityID {
			o := opp
			return &o, nil
		}
	}
	return nil, apperrors.NewNotFound("opportunity not found")
}

func (f *fakeClient) UpdateOpportunityValue(ctx context.Context, pipelineID, opportunityID string, value decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErrFor[opportunityID]; err != nil {
		return err
	}
	f.updates = append(f.updates, updateCall{PipelineID: pipelineID, OpportunityID: opportunityID, Value: value})
	// Mirror the write the way the real API does.
	opps := f.opportunities[pipelineID]
	for i := range opps {
		if opps[i].ID == opportunityID {
			v := value.InexactFloat64()
			opps[i].MonetaryValue = &v
		}
	}
	return nil
}

func (f *fakeClient) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func (f *fakeClient) updatedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.updates))
	for _, u := range f.updates {
		ids = append(ids, u.OpportunityID)
	}
	return ids
}

func testConfig() *config.Config {
	return &config.Config{
		GHL: config.GHLConfig{
			LoanAmountFieldKey: "loan_amount",
		},
		Sync: config.SyncConfig{
			CommissionRate:       0.01,
			PollIntervalSeconds:  600,
			WebhookDedupeSeconds: 30,
		},
	}
}
