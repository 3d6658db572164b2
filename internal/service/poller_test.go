package service

import (
	"context"
	"testing"

	"github.com/loanops/commsync/internal/model"
	"github.com/loanops/commsync/internal/pkg/apperrors"
	"github.com/stretchr/testify/require"
)

func TestFetchAllAggregatesPipelines(t *testing.T) {
	client := newFakeClient()
	client.addOpportunity("pip1", model.Opportunity{ID: "a"})
	client.addOpportunity("pip1", model.Opportunity{ID: "b"})
	client.addOpportunity("pip2", model.Opportunity{ID: "c"})

	opps, err := NewPoller(client).FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 3)
	for _, opp := range opps {
		require.NotEmpty(t, opp.PipelineID)
	}
}

func TestFetchAllPropagatesErrors(t *testing.T) {
	client := newFakeClient()
	client.pipelinesErr = apperrors.NewTransient("timeout", nil)

	_, err := NewPoller(client).FetchAll(context.Background())
	require.True(t, apperrors.IsTransient(err))

	client.pipelinesErr = nil
	client.addOpportunity("pip1", model.Opportunity{ID: "a"})
	client.listErr = apperrors.NewAuth("token rejected", nil)

	_, err = NewPoller(client).FetchAll(context.Background())
	require.True(t, apperrors.IsAuth(err))
}
