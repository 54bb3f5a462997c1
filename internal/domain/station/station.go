// Package station provides the Station domain entity.
package station

// Station represents a radio station supplied by a catalog.
type Station struct {
	ID          string // Catalog station ID (token)
	Name        string // Display name
	ArtURL      string // Station art URL (optional)
	QuickMix    bool   // Shuffle station aggregating other stations
	AllowRename bool   // Catalog permits renaming
	AllowDelete bool   // Catalog permits deletion
}

// IsZero reports whether s carries no identity.
func (s Station) IsZero() bool {
	return s.ID == ""
}

// String returns the display name, falling back to the ID.
func (s Station) String() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Find returns the station whose ID or name matches key.
// ID matches win over name matches; names compare case-sensitively.
func Find(stations []Station, key string) (Station, bool) {
	for _, s := range stations {
		if s.ID == key {
			return s, true
		}
	}
	for _, s := range stations {
		if s.Name == key {
			return s, true
		}
	}
	return Station{}, false
}
