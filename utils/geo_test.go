package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSouheill/hema_backend/models"
)

func TestPrecisionForRadius(t *testing.T) {
	assert.Equal(t, uint(5), precisionForRadius(2))
	assert.Equal(t, uint(5), precisionForRadius(4.89))
	assert.Equal(t, uint(4), precisionForRadius(6))
	assert.Equal(t, uint(4), precisionForRadius(19.5))
	assert.Equal(t, uint(3), precisionForRadius(50))
	assert.Equal(t, uint(1), precisionForRadius(5000))
}

func TestCoverDisc(t *testing.T) {
	center := models.GeoPoint{Latitude: 6.50, Longitude: 3.30}
	ranges := CoverDisc(center, 2)

	require.NotEmpty(t, ranges)
	assert.LessOrEqual(t, len(ranges), 9)

	// Every range spans one cell prefix and the list is ordered.
	for i, kr := range ranges {
		assert.Len(t, kr.Start, 5)
		assert.Equal(t, kr.Start+"~", kr.End)
		if i > 0 {
			assert.Less(t, ranges[i-1].Start, kr.Start)
		}
	}

	// The center's own cell must be covered.
	centerHash := EncodeGeohash(center)[:5]
	found := false
	for _, kr := range ranges {
		if kr.Start == centerHash {
			found = true
		}
	}
	assert.True(t, found, "center cell %s not covered", centerHash)
}

func TestCoverDiscGrowsCoarserWithRadius(t *testing.T) {
	center := models.GeoPoint{Latitude: 6.50, Longitude: 3.30}

	fine := CoverDisc(center, 2)
	coarse := CoverDisc(center, 50)

	assert.Greater(t, len(fine[0].Start), len(coarse[0].Start))

	// A fine cell key still falls inside one of the coarse ranges.
	for _, kr := range coarse {
		if strings.HasPrefix(fine[0].Start, kr.Start) {
			return
		}
	}
	t.Fatalf("fine cell %s not contained in coarse covering", fine[0].Start)
}

func TestDistanceKm(t *testing.T) {
	// One degree of longitude at the equator is about 111.19 km.
	a := models.GeoPoint{Latitude: 0, Longitude: 0}
	b := models.GeoPoint{Latitude: 0, Longitude: 1}
	assert.InDelta(t, 111.19, DistanceKm(a, b), 0.5)

	assert.Zero(t, DistanceKm(a, a))
}
