package assess

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAssessor_SourcesAccumulateAcrossRuns(t *testing.T) {
	scorer := new(MockScorer)
	scorer.On("Score", mock.Anything, mock.MatchedBy(func(r ScoreRequest) bool { return len(r.Items) == 1 })).
		Return(scores(0.5), nil).Once()
	scorer.On("Score", mock.Anything, mock.MatchedBy(func(r ScoreRequest) bool { return len(r.Items) == 2 })).
		Return(scores(0.5, 0.6), nil).Once()

	a := New(scorer).Task("t").Source(doc("a"))
	first, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, first.Rated, 1)

	second, err := a.From(doc("b")).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(second.Rated))

	// Earlier results are independent of later accumulation.
	assert.Len(t, first.Rated, 1)
	scorer.AssertExpectations(t)
}

func TestAssessor_Reset(t *testing.T) {
	a := New(new(MockScorer)).Task("t").From(doc("a"), doc("b")).Deep()
	req := a.Request()
	assert.Equal(t, "t", req.Task)
	assert.Len(t, req.Sources, 2)
	assert.True(t, req.Deep)

	a.Reset()
	req = a.Request()
	assert.Empty(t, req.Task)
	assert.Empty(t, req.Sources)
	assert.False(t, req.Deep)

	_, err := a.Run(context.Background())
	assert.ErrorIs(t, err, ErrMissingTask)
}

func TestAssessor_RequestIsSnapshot(t *testing.T) {
	a := New(new(MockScorer)).Task("t").Source(doc("a"))
	req := a.Request()
	a.Source(doc("b"))
	assert.Len(t, req.Sources, 1)
	req.Sources[0].ID = "mutated"
	assert.Equal(t, "a", a.Request().Sources[0].ID)
}
