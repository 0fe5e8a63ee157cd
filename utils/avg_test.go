package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvgVal(t *testing.T) {
	a := NewAvgVal()
	assert.Equal(t, 0.0, a.Val())
	assert.Equal(t, 0, a.Count())

	// the first sample is reported exactly
	a.Add(10)
	assert.Equal(t, 10.0, a.Val())

	a.Add(20)
	assert.Equal(t, 15.0, a.Val())
	assert.Equal(t, 2, a.Count())
}
