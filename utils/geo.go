// utils/geo.go
package utils

import (
	"sort"

	"github.com/mmcloughlin/geohash"
	"github.com/umahmood/haversine"

	"github.com/HSouheill/hema_backend/models"
)

// KeyRange is one ordered geohash range to scan in the donor index.
type KeyRange struct {
	Start string
	End   string
}

// Worst-case minimum cell dimension (km) per geohash precision. A 3x3
// block of cells at precision p covers any disc whose radius does not
// exceed the cell's smaller dimension.
var minCellDimKm = []float64{0, 4992.6, 624.1, 156.0, 19.5, 4.89, 0.61, 0.153, 0.019}

// precisionForRadius returns the longest geohash prefix whose 3x3
// neighborhood still covers a disc of the given radius.
func precisionForRadius(radiusKm float64) uint {
	for p := len(minCellDimKm) - 1; p >= 1; p-- {
		if minCellDimKm[p] >= radiusKm {
			return uint(p)
		}
	}
	return 1
}

// CoverDisc returns the geohash key ranges covering a disc around the
// center. The covering over-includes at cell edges by construction;
// callers must re-check true distance on every record returned.
func CoverDisc(center models.GeoPoint, radiusKm float64) []KeyRange {
	precision := precisionForRadius(radiusKm)

	centerHash := geohash.EncodeWithPrecision(center.Latitude, center.Longitude, precision)
	cells := map[string]bool{centerHash: true}
	for _, n := range geohash.Neighbors(centerHash) {
		cells[n] = true
	}

	ranges := make([]KeyRange, 0, len(cells))
	for cell := range cells {
		// '~' sorts after every geohash character, so [cell, cell+"~")
		// spans every key with that cell prefix.
		ranges = append(ranges, KeyRange{Start: cell, End: cell + "~"})
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	return ranges
}

// DistanceKm computes the great-circle distance between two points.
func DistanceKm(a, b models.GeoPoint) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Latitude, Lon: a.Longitude},
		haversine.Coord{Lat: b.Latitude, Lon: b.Longitude},
	)
	return km
}

// EncodeGeohash returns the full-precision geohash for a coordinate,
// used when donors update their location.
func EncodeGeohash(p models.GeoPoint) string {
	return geohash.Encode(p.Latitude, p.Longitude)
}
