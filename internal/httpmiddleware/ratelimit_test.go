package httpmiddleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowExhaustsCapacity(t *testing.T) {
	l := NewTokenBucket(3, 60)
	now := time.Now()
	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("1.2.3.4", now), "request %d", i)
	}
	assert.False(t, l.allow("1.2.3.4", now))
}

func TestAllowRefillsOverTime(t *testing.T) {
	l := NewTokenBucket(1, 60)
	now := time.Now()
	assert.True(t, l.allow("1.2.3.4", now))
	assert.False(t, l.allow("1.2.3.4", now))
	assert.True(t, l.allow("1.2.3.4", now.Add(2*time.Second)))
}

func TestAllowIsPerKey(t *testing.T) {
	l := NewTokenBucket(1, 60)
	now := time.Now()
	assert.True(t, l.allow("1.1.1.1", now))
	assert.True(t, l.allow("2.2.2.2", now))
}
