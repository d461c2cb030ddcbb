package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("episode_guide.txt_0")
	b := PointID("episode_guide.txt_0")
	c := PointID("episode_guide.txt_1")

	assert.Equal(t, a, b, "same logical id must map to the same point")
	assert.NotEqual(t, a, c, "different chunk ids must map to different points")
	assert.Len(t, a, 36, "point id must be a canonical UUID string")
}
