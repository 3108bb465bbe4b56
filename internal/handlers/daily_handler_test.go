package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointsOr(t *testing.T) {
	zero, five := 0, 5
	assert.Equal(t, 20, pointsOr(nil, 20), "omitted tier takes the default")
	assert.Equal(t, 0, pointsOr(&zero, 20), "explicit zero is kept")
	assert.Equal(t, 5, pointsOr(&five, 20))
}
