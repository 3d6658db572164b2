package service

import (
	"context"

	"github.com/loanops/commsync/internal/ghl"
	"github.com/loanops/commsync/internal/model"
	"github.com/loanops/commsync/internal/pkg/logger"
)

// Poller fetches the current opportunity set across all pipelines. It never
// mutates remote state. Any fetch error aborts the pass; the loop driver
// decides whether it is fatal (auth) or just skips to the next tick.
type Poller struct {
	client ghl.Client
}

func NewPoller(client ghl.Client) *Poller {
	return &Poller{client: client}
}

func (p *Poller) FetchAll(ctx context.Context) ([]model.Opportunity, error) {
	pipelines, err := p.client.Pipelines(ctx)
	if err != nil {
		return nil, err
	}

	var all []model.Opportunity
	for _, pipeline := range pipelines {
		opps, err := p.client.Opportunities(ctx, pipeline.ID)
		if err != nil {
			return nil, err
		}
		// Older payloads omit pipelineId on the records themselves.
		for i := range opps {
			if opps[i].PipelineID == "" {
				opps[i].PipelineID = pipeline.ID
			}
		}
		logger.Debug("Fetched pipeline", "pipeline_id", pipeline.ID, "name", pipeline.Name, "opportunities", len(opps))
		all = append(all, opps...)
	}
	return all, nil
}
