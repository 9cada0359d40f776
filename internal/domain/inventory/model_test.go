package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStock(t *testing.T) {
	t.Parallel()

	next, err := NextStock(10, MoveExit, 3)
	require.NoError(t, err)
	assert.Equal(t, 7.0, next)

	next, err = NextStock(7, MoveReturn, 3)
	require.NoError(t, err)
	assert.Equal(t, 10.0, next)

	next, err = NextStock(10, MoveAdjustment, 4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, next)

	next, err = NextStock(2, MoveExit, 5)
	require.NoError(t, err)
	assert.Equal(t, -3.0, next, "caller rejects negative results")

	_, err = NextStock(1, MoveType("transfer"), 1)
	assert.Error(t, err)
}

func TestNextStockFractional(t *testing.T) {
	t.Parallel()

	next, err := NextStock(0.3, MoveExit, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.2, next)

	next, err = NextStock(next, MoveExit, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, next)

	next, err = NextStock(0.1, MoveEntry, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 0.3, next)
}

func TestExactQty(t *testing.T) {
	t.Parallel()

	assert.True(t, ExactQty(1))
	assert.True(t, ExactQty(0.125))
	assert.False(t, ExactQty(0.0005))
	assert.False(t, ExactQty(1.2345))
	assert.Equal(t, 0.3, StoredQty(Qty(0.1).Add(Qty(0.2))))
}

func TestReplay(t *testing.T) {
	t.Parallel()

	log := []Movement{
		{ID: 1, Type: MoveEntry, Qty: 10, PreviousStock: 0, NewStock: 10},
		{ID: 2, Type: MoveExit, Qty: 3, PreviousStock: 10, NewStock: 7},
		{ID: 3, Type: MoveReturn, Qty: 3, PreviousStock: 7, NewStock: 10},
		{ID: 4, Type: MoveAdjustment, Qty: 2, PreviousStock: 10, NewStock: 8},
	}

	t.Run("consistent", func(t *testing.T) {
		t.Parallel()

		stock, brk := Replay(log)
		assert.Nil(t, brk)
		assert.Equal(t, 8.0, stock)
	})

	t.Run("gap in the chain", func(t *testing.T) {
		t.Parallel()

		broken := append([]Movement(nil), log...)
		broken[2].PreviousStock = 6
		_, brk := Replay(broken)
		require.NotNil(t, brk)
		assert.Equal(t, int64(3), brk.MovementID)
		assert.Equal(t, 7.0, brk.Expected)
		assert.Equal(t, 6.0, brk.Recorded)
	})

	t.Run("arithmetic mismatch", func(t *testing.T) {
		t.Parallel()

		broken := append([]Movement(nil), log...)
		broken[1].NewStock = 6
		_, brk := Replay(broken)
		require.NotNil(t, brk)
		assert.Equal(t, int64(2), brk.MovementID)
		assert.Equal(t, 7.0, brk.Expected)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		stock, brk := Replay(nil)
		assert.Nil(t, brk)
		assert.Zero(t, stock)
	})
}
