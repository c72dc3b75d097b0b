// Package geo implements the pure, stateless spatial primitives every other
// BREACH component builds on: distance, bearing, destination point, uniform
// random sampling within a circle, and geohash encoding with its 8 neighbors.
//
// These are ports of the formulas in the game's original location-services
// module (haversine/bearing/destination/random-point-in-circle), kept
// deliberately free of any I/O or shared state so every other component can
// call them synchronously, including from inside the single RNG pass that
// must precede a suspension point (see internal/rng).
package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by every distance formula
// in this package. Using a single constant everywhere keeps haversine,
// destination, and random-point-in-circle mutually consistent.
const earthRadiusMeters = 6371000.0

// Point is a WGS-84 latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180.0 }
func toDegrees(rad float64) float64 { return rad * 180.0 / math.Pi }

// Haversine returns the great-circle distance between a and b in meters.
// Symmetric, zero for identical points, ≈ π·R for antipodal points.
func Haversine(a, b Point) float64 {
	lat1, lat2 := toRadians(a.Lat), toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}

// Bearing returns the initial bearing from a to b in degrees, in the
// half-open range (-180, 180] returned by atan2. Callers that want a compass
// heading in [0, 360) should normalize themselves.
func Bearing(a, b Point) float64 {
	lat1, lat2 := toRadians(a.Lat), toRadians(b.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	return toDegrees(math.Atan2(y, x))
}

// Destination returns the point reached from origin traveling distanceM
// meters along bearingDeg degrees.
func Destination(origin Point, bearingDeg, distanceM float64) Point {
	lat1 := toRadians(origin.Lat)
	lng1 := toRadians(origin.Lng)
	brng := toRadians(bearingDeg)
	angularDist := distanceM / earthRadiusMeters

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angularDist) +
		math.Cos(lat1)*math.Sin(angularDist)*math.Cos(brng))
	lng2 := lng1 + math.Atan2(
		math.Sin(brng)*math.Sin(angularDist)*math.Cos(lat1),
		math.Cos(angularDist)-math.Sin(lat1)*math.Sin(lat2))

	return Point{Lat: toDegrees(lat2), Lng: toDegrees(lng2)}
}

// RandomPointInCircle draws a uniform-area point within radiusM of center,
// given two uniform [0,1) draws. Sampling distance as r·√u (not r·u) is what
// makes the area distribution uniform instead of biased toward the center;
// callers MUST draw u and bearingU synchronously before any suspension point
// per the package-level RNG discipline.
func RandomPointInCircle(center Point, radiusM, u, bearingU float64) Point {
	dist := radiusM * math.Sqrt(u)
	bearingDeg := bearingU * 360.0
	return Destination(center, bearingDeg, dist)
}

// FlatOffset converts a polar (bearing, distance) offset from origin into a
// lat/lng delta using the local flat-earth approximation the spawn engine
// uses for intra-POI placement (spec §4.3 step 4), which is cheaper than the
// full spherical Destination formula and accurate enough at POI radius
// scales (tens to low hundreds of meters).
func FlatOffset(origin Point, bearingDeg, distanceM float64) Point {
	theta := toRadians(bearingDeg)
	latRad := toRadians(origin.Lat)

	dLat := distanceM * math.Cos(theta) / 111320.0
	dLng := distanceM * math.Sin(theta) / (111320.0 * math.Cos(latRad))

	return Point{Lat: origin.Lat + dLat, Lng: origin.Lng + dLng}
}
