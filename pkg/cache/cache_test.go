package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetGet(t *testing.T) {
	c := NewCache[string](time.Minute)
	defer c.Stop()

	c.Set("ins_1", "Chase", time.Minute)

	v, ok := c.Get("ins_1")
	assert.True(t, ok)
	assert.Equal(t, "Chase", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache[int](time.Minute)
	defer c.Stop()

	c.Set("k", 1, -time.Second)

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.sweep()
	assert.Equal(t, 0, c.Len())
}

func TestCache_DeleteAndDoubleStop(t *testing.T) {
	c := NewCache[int](time.Minute)
	c.Set("k", 1, time.Minute)
	c.Delete("k")

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Stop()
	c.Stop()
}
