package natsadapter

import "strings"

// Subject roots. Device and region IDs become the last token.
const (
	SubjectLocations = "geofence.location"
	SubjectEvents    = "geofence.events"
	SubjectRegions   = "geofence.regions"
	DefaultPushRoot  = "geofence.push"
)

// LocationSubject is where a device's position fixes are published.
func LocationSubject(deviceID string) string {
	return SubjectLocations + "." + token(deviceID)
}

// EventSubject is geofence.events.<transition>.<region>.
func EventSubject(transition, regionID string) string {
	return SubjectEvents + "." + token(transition) + "." + token(regionID)
}

// RegionSubject is geofence.regions.<added|removed>.
func RegionSubject(change string) string {
	return SubjectRegions + "." + token(change)
}

// token makes s safe as a single subject token. Separators, wildcards and
// whitespace are replaced with underscores.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
