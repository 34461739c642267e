package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmbeddingFlag_ValidJSON(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("embedding", "", "")
	require.NoError(t, cmd.Flags().Set("embedding", "[0.1, 0.2, 0.3]"))

	values, err := parseEmbeddingFlag(cmd)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, values)
}

func TestParseEmbeddingFlag_MissingFlag(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("embedding", "", "")

	_, err := parseEmbeddingFlag(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestParseEmbeddingFlag_InvalidJSON(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("embedding", "", "")
	require.NoError(t, cmd.Flags().Set("embedding", "not-json"))

	_, err := parseEmbeddingFlag(cmd)
	require.Error(t, err)
}
