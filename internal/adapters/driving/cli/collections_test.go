package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionsCmd_Use(t *testing.T) {
	assert.Equal(t, "collections", collectionsCmd.Use)
	assert.Equal(t, "list", collectionsListCmd.Use)
	assert.Equal(t, "delete [name]", collectionsDeleteCmd.Use)
}

func TestCollectionsList_Empty(t *testing.T) {
	cleanup := setupTestServices(&fakePipeline{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"collections", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No collections.")
}

func TestCollectionsList_ShowsNames(t *testing.T) {
	cleanup := setupTestServices(&fakePipeline{})
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, vectorStore.EnsureCollection(ctx, "docs", 2, "cosine"))
	require.NoError(t, vectorStore.EnsureCollection(ctx, "guides", 2, "cosine"))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"collections", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "docs")
	assert.Contains(t, buf.String(), "guides")
}

func TestCollectionsDelete(t *testing.T) {
	cleanup := setupTestServices(&fakePipeline{})
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, vectorStore.EnsureCollection(ctx, "docs", 2, "cosine"))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"collections", "delete", "docs"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `Deleted "docs"`)

	names, err := vectorStore.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCollectionsDelete_NotFound(t *testing.T) {
	cleanup := setupTestServices(&fakePipeline{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"collections", "delete", "missing"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
