package geospatial

import "math"

const earthRadiusMeters = 6371000.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Within reports whether (lat, lon) lies inside the circle centred on
// (centerLat, centerLon). The boundary counts as inside.
func Within(centerLat, centerLon, radiusMeters, lat, lon float64) bool {
	return Haversine(centerLat, centerLon, lat, lon) <= radiusMeters
}

// BoundingBox returns the smallest box containing the spherical circle of
// radiusMeters around a point. The longitude half-width is the circle's
// widest extent, asin(sin(d)/cos(lat)) for angular radius d, which is wider
// than d/cos(lat) away from the equator.
// ok is false when the box would wrap a pole or the antimeridian; callers
// should then skip box prefiltering and go straight to Haversine.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64, ok bool) {
	angular := radiusMeters / earthRadiusMeters
	if angular >= math.Pi/2 {
		return 0, 0, 0, 0, false
	}

	latDelta := toDeg(angular)
	minLat, maxLat = lat-latDelta, lat+latDelta
	if minLat <= -90 || maxLat >= 90 {
		return 0, 0, 0, 0, false
	}

	s := math.Sin(angular) / math.Cos(toRad(lat))
	if s >= 1 {
		return 0, 0, 0, 0, false
	}
	lonDelta := toDeg(math.Asin(s))
	minLon, maxLon = lon-lonDelta, lon+lonDelta
	if minLon < -180 || maxLon > 180 {
		return 0, 0, 0, 0, false
	}

	return minLat, minLon, maxLat, maxLon, true
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
