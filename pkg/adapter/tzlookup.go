package adapter

import "github.com/zsefvlol/timezonemapper"

// mapperLookup resolves zones from the embedded timezone boundary
// table. Linked in, so always available; kept behind the interface so
// tests can model the degraded path.
type mapperLookup struct{}

// NewTimezoneLookup returns the coordinate-to-zone resolver.
func NewTimezoneLookup() TimezoneLookup {
	return &mapperLookup{}
}

func (m *mapperLookup) Available() bool { return true }

// Resolve nearest-matches against the embedded table, so even open
// ocean yields the closest zone; the false branch only covers an empty
// result from the mapper.
func (m *mapperLookup) Resolve(lat, lon float64) (string, bool) {
	zone := timezonemapper.LatLngToTimezoneString(lat, lon)
	return zone, zone != ""
}
