// models/geo.go
package models

// GeoPoint is a precise WGS84 coordinate
type GeoPoint struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// GeoLocation stores a coordinate together with its geohash cell key.
// The geohash is what range queries are issued against; the geopoint is
// what true distances are computed from.
type GeoLocation struct {
	Geohash  string   `json:"geohash" bson:"geohash"`
	Geopoint GeoPoint `json:"geopoint" bson:"geopoint"`
}
