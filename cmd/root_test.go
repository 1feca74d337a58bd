package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"ingest", "assess", "compose", "runs", "cache"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "contextrie", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("output-dir"))
}

func TestComposeCommand_Flags(t *testing.T) {
	for _, name := range []string{"task", "threshold", "density", "deep", "raw", "sources", "assessment", "concurrency", "stdout"} {
		assert.NotNil(t, composeCmd.Flags().Lookup(name), "compose should have --%s flag", name)
	}
	assert.Equal(t, "0.65", composeCmd.Flags().Lookup("threshold").DefValue)
	assert.Equal(t, "thorough", composeCmd.Flags().Lookup("density").DefValue)
}

func TestAssessCommand_TaskRequired(t *testing.T) {
	flag := assessCmd.Flags().Lookup("task")
	require.NotNil(t, flag)
	assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"])
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
	assert.True(t, names["stats"])
}

func TestCacheCommand_Prune(t *testing.T) {
	require.Len(t, cacheCmd.Commands(), 1)
	flag := cachePruneCmd.Flags().Lookup("older-than")
	require.NotNil(t, flag)
	assert.Equal(t, "720h0m0s", flag.DefValue)
}
