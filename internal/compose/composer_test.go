package compose

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposer_Defaults(t *testing.T) {
	req := New(echoCompressor).Request()
	assert.Equal(t, DefaultThreshold, req.Threshold)
	assert.Equal(t, 1.0, req.Density)
	assert.Equal(t, 0, req.Concurrency)
}

func TestComposer_Options(t *testing.T) {
	req := New(echoCompressor,
		WithDefaultThreshold(1.4),
		WithDefaultDensity(Sparse),
		WithConcurrency(-3),
	).Request()
	assert.Equal(t, 1.0, req.Threshold)
	assert.Equal(t, 0.25, req.Density)
	assert.Equal(t, 0, req.Concurrency)
}

func TestComposer_ThresholdClamped(t *testing.T) {
	c := New(echoCompressor)
	assert.Equal(t, 0.0, c.Threshold(-1).Request().Threshold)
	assert.Equal(t, 1.0, c.Threshold(2).Request().Threshold)
}

func TestComposer_UnknownDensityReportedByRun(t *testing.T) {
	c := New(echoCompressor).Task("t").Density(Preset("verbose"))
	_, err := c.Run(context.Background())
	assert.ErrorContains(t, err, "unknown density preset")

	// A later valid density clears the error.
	_, err = c.Density(Level(0.5)).Run(context.Background())
	assert.NoError(t, err)
}

func TestComposer_NaNThresholdReportedByRun(t *testing.T) {
	c := New(echoCompressor).Task("t").From(rated("a", 0.9)).Threshold(math.NaN())
	assert.Equal(t, DefaultThreshold, c.Request().Threshold, "NaN leaves the previous threshold")

	_, err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrNaNThreshold)

	// A valid density does not hide the threshold error.
	_, err = c.Density(Balanced).Run(context.Background())
	require.ErrorIs(t, err, ErrNaNThreshold)

	out, err := c.Threshold(0.5).Run(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, out, "NaN")

	_, err = New(echoCompressor, WithDefaultThreshold(math.NaN())).Task("t").Run(context.Background())
	assert.ErrorIs(t, err, ErrNaNThreshold)
}

func TestComposer_Idempotent(t *testing.T) {
	c := New(echoCompressor).
		Task("Explain authentication flow").
		From(rated("a", 0.9), rated("b", 0.8), rated("c", 0.3)).
		Density(Detailed)

	first, err := c.Run(context.Background())
	require.NoError(t, err)
	second, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComposer_SourcesAccumulate(t *testing.T) {
	c := New(echoCompressor).Task("t").Threshold(0).From(rated("a", 1))
	doc, err := c.RunDocument(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc.Blocks, 1)

	doc, err = c.From(rated("b", 1)).RunDocument(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc.Blocks, 2)
}
