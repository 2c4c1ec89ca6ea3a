package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartMergesLines(t *testing.T) {
	c := NewCart()
	rice := &Product{ID: 1, Name: "Rice", Price: 60}
	oil := &Product{ID: 3, Name: "Oil", Price: 120}

	c.Add(rice, 2)
	c.Add(oil, 1)
	c.Add(rice, 3)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ProductID)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 5, c.Quantity(1))
	assert.Equal(t, 0, c.Quantity(99))
	assert.InDelta(t, 5*60.0+120, c.Total(), 1e-9)
}

func TestCartSetAndRemove(t *testing.T) {
	c := NewCart()
	c.Add(&Product{ID: 1, Name: "Rice", Price: 60}, 2)

	require.NoError(t, c.Set(1, 7))
	assert.Equal(t, 7, c.Quantity(1))
	assert.ErrorIs(t, c.Set(2, 1), ErrNotInCart)

	assert.True(t, c.Remove(1))
	assert.False(t, c.Remove(1))
	assert.Zero(t, c.Len())
}

func TestCartItemsIsACopy(t *testing.T) {
	c := NewCart()
	c.Add(&Product{ID: 1, Name: "Rice", Price: 60}, 2)
	items := c.Items()
	items[0].Quantity = 100
	assert.Equal(t, 2, c.Quantity(1))

	c.Clear()
	assert.Empty(t, c.Items())
}
