package ports

import (
	"context"
	"testing"

	"github.com/aretw0/figflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DocumentFactory creates a fresh document holding the given text.
type DocumentFactory func(t *testing.T, text string) Document

// RunDocumentContract runs a suite of tests to verify that a Document implementation
// adheres to the defined interface contract.
func RunDocumentContract(t *testing.T, newDoc DocumentFactory) {
	ctx := context.Background()

	t.Run("Text and Len", func(t *testing.T) {
		doc := newDoc(t, "x=1")

		text, err := doc.Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "x=1", text)

		n, err := doc.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("Clear", func(t *testing.T) {
		doc := newDoc(t, "package main\n")

		n, err := doc.Len(ctx)
		require.NoError(t, err)
		require.NoError(t, doc.Replace(ctx, domain.Full(n), ""))

		text, err := doc.Text(ctx)
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("Insert At End", func(t *testing.T) {
		doc := newDoc(t, "x")

		require.NoError(t, doc.Replace(ctx, domain.At(1), " "))
		require.NoError(t, doc.Replace(ctx, domain.At(2), "="))

		text, err := doc.Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "x =", text)
	})

	t.Run("Replace Middle", func(t *testing.T) {
		doc := newDoc(t, "x=1")

		require.NoError(t, doc.Replace(ctx, domain.Range{Start: 1, End: 2}, " = "))

		text, err := doc.Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "x = 1", text)
	})

	t.Run("Multibyte Length", func(t *testing.T) {
		doc := newDoc(t, "")

		require.NoError(t, doc.Replace(ctx, domain.At(0), "é"))
		n, err := doc.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, doc.Replace(ctx, domain.At(n), "→"))
		text, err := doc.Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "é→", text)
	})

	t.Run("Invalid Range", func(t *testing.T) {
		doc := newDoc(t, "abc")

		err := doc.Replace(ctx, domain.At(10), "x")
		assert.ErrorIs(t, err, domain.ErrInvalidRange)

		text, err := doc.Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "abc", text, "failed edit must not mutate the document")
	})
}
