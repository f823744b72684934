package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCenterRecordsToasts(t *testing.T) {
	c := NewCenter(10)

	c.Success("Enrollment paused successfully")
	c.Error("Cannot pause: billing already suspended")

	toasts := c.List()
	require.Len(t, toasts, 2)
	assert.Equal(t, LevelSuccess, toasts[0].Level)
	assert.Equal(t, LevelError, toasts[1].Level)
	assert.Equal(t, "Cannot pause: billing already suspended", toasts[1].Message)
	assert.NotEmpty(t, toasts[0].ID)
}

func TestCenterBoundsHistory(t *testing.T) {
	c := NewCenter(3)

	for i := 0; i < 5; i++ {
		c.Success(fmt.Sprintf("toast %d", i))
	}

	toasts := c.List()
	require.Len(t, toasts, 3)
	assert.Equal(t, "toast 2", toasts[0].Message)
	assert.Equal(t, "toast 4", toasts[2].Message)
}

func TestCenterDrain(t *testing.T) {
	c := NewCenter(0)
	c.Error("boom")

	assert.Len(t, c.Drain(), 1)
	assert.Empty(t, c.List())
}

func TestCenterListen(t *testing.T) {
	c := NewCenter(5)
	ch := c.Listen(1)

	c.Success("first")
	c.Success("dropped for slow listener")

	got := <-ch
	assert.Equal(t, "first", got.Message)
	assert.Len(t, c.List(), 2)
}
