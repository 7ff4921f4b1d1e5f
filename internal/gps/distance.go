package gps

import "math"

const earthRadiusKm = 6371.0

// DistanceFunc returns the geodesic distance in kilometers between two
// points given as decimal degrees. Implementations must be pure.
type DistanceFunc func(lat1, lon1, lat2, lon2 float64) float64

// HaversineKm is the default DistanceFunc, using a spherical earth.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Destination returns the point reached by travelling distanceKm from
// (lat, lon) on the given initial bearing.
func Destination(lat, lon, bearingDeg, distanceKm float64) (float64, float64) {
	d := distanceKm / earthRadiusKm
	b := toRad(bearingDeg)
	lat1 := toRad(lat)
	lon1 := toRad(lon)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(b))
	lon2 := lon1 + math.Atan2(math.Sin(b)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))

	// normalise to [-180, 180)
	lonDeg := math.Mod(toDeg(lon2)+540, 360) - 180
	return toDeg(lat2), lonDeg
}

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func toDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
