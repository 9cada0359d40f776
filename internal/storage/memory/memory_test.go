package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/pos-core/internal/apperr"
	"github.com/Spok95/pos-core/internal/domain/cash"
	"github.com/Spok95/pos-core/internal/domain/products"
	"github.com/Spok95/pos-core/internal/domain/sales"
	"github.com/Spok95/pos-core/internal/storage"
)

func TestInTxDiscardsFailedWork(t *testing.T) {
	ctx := context.Background()
	s := New()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.CreateProduct(ctx, products.Product{Code: "A", Name: "A"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		list, err := tx.ListProducts(ctx, products.Filter{})
		assert.Empty(t, list)
		return err
	}))
}

func TestViewWritesAreDropped(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		_, err := tx.CreateProduct(ctx, products.Product{Code: "A", Name: "A"})
		return err
	}))
	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		_, err := tx.GetProduct(ctx, 1)
		assert.ErrorIs(t, err, apperr.ErrProductNotFound)
		return nil
	}))
}

func TestUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	err := s.InTx(ctx, func(tx storage.Tx) error {
		_, err := tx.InsertSale(ctx, sales.Sale{Number: "POS-1", Period: "20240305", Seq: 1})
		require.NoError(t, err)
		_, err = tx.InsertSale(ctx, sales.Sale{Number: "POS-1", Period: "20240305", Seq: 1})
		assert.ErrorIs(t, err, apperr.ErrSaleNumberTaken)

		n, err := tx.NextSaleSeq(ctx, "20240305")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		sess, err := tx.InsertSession(ctx, cash.Session{BusinessDay: day})
		require.NoError(t, err)
		_, err = tx.InsertSession(ctx, cash.Session{BusinessDay: day})
		assert.ErrorIs(t, err, apperr.ErrSessionAlreadyOpen)

		now := time.Now()
		sess.ClosedAt = &now
		require.NoError(t, tx.CloseSession(ctx, sess))
		assert.ErrorIs(t, tx.CloseSession(ctx, sess), apperr.ErrSessionAlreadyClosed)
		_, err = tx.InsertSession(ctx, cash.Session{BusinessDay: day})
		return err
	})
	require.NoError(t, err)
}

func TestContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New().InTx(ctx, func(storage.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
