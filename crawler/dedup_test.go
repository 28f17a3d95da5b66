package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenSetObserve(t *testing.T) {
	s := NewSeenSet()

	assert.True(t, s.Observe(42), "first sighting must emit")
	assert.False(t, s.Observe(42), "second sighting must skip")
	assert.False(t, s.Observe(42))
	assert.True(t, s.Observe(43))
	assert.Equal(t, 2, s.Len())
}
