package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FunkyDruid/contextrie/internal/cost"
)

func testCalculator() *cost.Calculator {
	return cost.NewCalculator(cost.Rates{Models: map[string]cost.ModelRate{
		"paid": {Input: 1, Output: 2},
	}})
}

func TestMeter_RecordsPerStage(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(&Response{
		Text:  "x",
		Model: "paid",
		Usage: Usage{InputTokens: 1_000_000, OutputTokens: 500_000},
	}, nil)

	m := NewMeter(testCalculator())
	assessGen := m.Wrap(StageAssess, gen)
	composeGen := m.Wrap(StageCompose, gen)

	_, err := assessGen.Generate(context.Background(), Request{Prompt: "a"})
	require.NoError(t, err)
	_, err = composeGen.Generate(context.Background(), Request{Prompt: "b"})
	require.NoError(t, err)
	_, err = composeGen.Generate(context.Background(), Request{Prompt: "c"})
	require.NoError(t, err)

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, StageAssess, snap[0].Stage)
	assert.Equal(t, 1, snap[0].Calls)
	assert.InDelta(t, 2.0, snap[0].CostUSD, 0.0001)
	assert.Equal(t, StageCompose, snap[1].Stage)
	assert.Equal(t, 2, snap[1].Calls)
	assert.Equal(t, 2_000_000, snap[1].Tokens.Input)

	total := m.Total()
	assert.Equal(t, 3, total.Calls)
	assert.InDelta(t, 6.0, total.CostUSD, 0.0001)
	assert.NotPanics(t, m.Log)
}

func TestMeter_EstimatesMissingUsage(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(&Response{Text: "some reply text", Model: "local"}, nil)

	m := NewMeter(testCalculator())
	_, err := m.Wrap(StageIngest, gen).Generate(context.Background(), Request{System: "sys", Prompt: "a longer prompt here"})
	require.NoError(t, err)

	s := m.Snapshot()[0]
	assert.Equal(t, 1, s.Estimated)
	assert.Greater(t, s.Tokens.Input, 0)
	assert.Greater(t, s.Tokens.Output, 0)
	assert.Zero(t, s.CostUSD)
}

func TestMeter_CountsFailures(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	m := NewMeter(nil)
	_, err := m.Wrap(StageAssess, gen).Generate(context.Background(), Request{})
	require.Error(t, err)

	s := m.Snapshot()[0]
	assert.Equal(t, 1, s.Calls)
	assert.Equal(t, 1, s.Failures)
}

func TestMeter_Concurrent(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, Request) (*Response, error) {
		return &Response{Model: "paid", Usage: Usage{InputTokens: 10, OutputTokens: 1}}, nil
	})
	m := NewMeter(testCalculator())
	wrapped := m.Wrap(StageCompose, gen)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = wrapped.Generate(context.Background(), Request{})
		}()
	}
	wg.Wait()

	s := m.Snapshot()[0]
	assert.Equal(t, 50, s.Calls)
	assert.Equal(t, 500, s.Tokens.Input)
}
