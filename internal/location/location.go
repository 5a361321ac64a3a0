// Package location resolves the farm coordinates used for weather and
// advisory context. Readings outside the East Africa coverage area, failed
// acquisitions and denied permissions all fall back to the Nairobi default;
// callers never see a hard error, only which source the coordinate came from.
package location

// Coordinate is a resolved position. Source is "user" for a device reading
// and "default" for the Nairobi fallback. A Coordinate at rest is always
// inside CoverageBounds.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Source    string  `json:"source"`
	Location  string  `json:"location"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// Bounds is a closed latitude/longitude rectangle.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Contains reports whether (lat, lon) lies inside the rectangle, borders
// included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat &&
		lon >= b.MinLon && lon <= b.MaxLon
}

// CoverageBounds approximates the East Africa service area: southern
// Tanzania to northern Ethiopia/Somalia, western Uganda to eastern Somalia.
var CoverageBounds = Bounds{
	MinLat: -12.0,
	MaxLat: 18.0,
	MinLon: 29.0,
	MaxLon: 52.0,
}

// DefaultCoordinate is the Nairobi demo location.
var DefaultCoordinate = Coordinate{
	Latitude:  -1.2864,
	Longitude: 36.8172,
	Source:    "default",
	Location:  "Nairobi, Kenya",
}

type region struct {
	name string
	box  Bounds
}

// Checked in order; the boxes overlap, so first match wins.
var regions = []region{
	{"Kenya", Bounds{MinLat: -4.5, MaxLat: 5.0, MinLon: 33.5, MaxLon: 42.0}},
	{"Tanzania", Bounds{MinLat: -12.0, MaxLat: -1.0, MinLon: 29.5, MaxLon: 40.5}},
	{"Uganda", Bounds{MinLat: -1.5, MaxLat: 4.5, MinLon: 29.5, MaxLon: 35.0}},
	{"Ethiopia", Bounds{MinLat: 3.0, MaxLat: 15.0, MinLon: 32.0, MaxLon: 48.0}},
	{"Somalia", Bounds{MinLat: -2.0, MaxLat: 12.0, MinLon: 41.0, MaxLon: 52.0}},
}

// RegionName returns a coarse country label for the coordinates. It is
// approximate by design; anything unmatched inside the coverage area is
// labelled "East Africa".
func RegionName(lat, lon float64) string {
	for _, r := range regions {
		if r.box.Contains(lat, lon) {
			return r.name
		}
	}
	return "East Africa"
}
