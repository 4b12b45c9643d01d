package geo

import "math"

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// milesPerDegree converts a degree delta to an approximate surface distance.
const milesPerDegree = 69.0

// Distance returns the approximate distance between two points in miles,
// using a planar approximation. Callers only depend on the
// (Point, Point) -> miles contract, so a geodesic formula can replace
// this without touching them.
func Distance(a, b Point) float64 {
	latDiff := a.Latitude - b.Latitude
	lngDiff := a.Longitude - b.Longitude
	return math.Sqrt(latDiff*latDiff+lngDiff*lngDiff) * milesPerDegree
}

// Within reports whether b lies within radius miles of a.
func Within(a, b Point, radius float64) bool {
	return Distance(a, b) <= radius
}
