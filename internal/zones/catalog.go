package zones

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/richxcame/scooter-ride/internal/geo"
	"github.com/richxcame/scooter-ride/pkg/models"
	"github.com/uber/h3-go/v4"
)

// Catalog holds polygon zones for map display, ordered for rendering and
// indexed by H3 cell for point lookups.
type Catalog struct {
	zones []models.PolygonZone
	index map[h3.Cell][]int
}

// NewCatalog sorts zones ascending by priority, so higher-priority zones are
// drawn last, and indexes them. Equal priorities are ordered by id.
func NewCatalog(zones []models.PolygonZone) *Catalog {
	sorted := make([]models.PolygonZone, len(zones))
	copy(sorted, zones)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].ID < sorted[j].ID
	})

	c := &Catalog{
		zones: sorted,
		index: make(map[h3.Cell][]int),
	}
	for i, z := range sorted {
		seen := make(map[h3.Cell]struct{})
		for _, ring := range z.Rings {
			for _, cell := range geo.RingCells(ring, geo.H3ResolutionZone) {
				if _, ok := seen[cell]; ok {
					continue
				}
				seen[cell] = struct{}{}
				c.index[cell] = append(c.index[cell], i)
			}
		}
	}
	return c
}

// LoadCatalog reads a JSON array of polygon zones.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var zones []models.PolygonZone
	if err := json.NewDecoder(r).Decode(&zones); err != nil {
		return nil, fmt.Errorf("decode zone catalog: %w", err)
	}
	return NewCatalog(zones), nil
}

// LoadCatalogFile reads a catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCatalog(f)
}

// Len returns the number of zones.
func (c *Catalog) Len() int {
	return len(c.zones)
}

// Ordered returns the zones in render order.
func (c *Catalog) Ordered() []models.PolygonZone {
	out := make([]models.PolygonZone, len(c.zones))
	copy(out, c.zones)
	return out
}

// Resolve returns the zone that wins at coord: the last zone in render order
// that contains it. Nil when no zone matches.
func (c *Catalog) Resolve(coord models.Coordinate) *models.PolygonZone {
	best := -1
	for _, cell := range geo.Disk(coord, geo.H3ResolutionZone, 1) {
		for _, i := range c.index[cell] {
			if i > best && Contains(c.zones[i], coord) {
				best = i
			}
		}
	}
	if best < 0 {
		return nil
	}
	z := c.zones[best]
	return &z
}

// Contains reports whether any ring of zone contains coord. Rings are
// separate polygons of a multi-polygon.
func Contains(zone models.PolygonZone, coord models.Coordinate) bool {
	for _, ring := range zone.Rings {
		if ringContains(ring, coord) {
			return true
		}
	}
	return false
}

// ringContains is the even-odd ray casting test on a lat/lng plane, which is
// accurate enough at city scale.
func ringContains(ring []models.Coordinate, p models.Coordinate) bool {
	n := len(ring)
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Latitude > p.Latitude) != (b.Latitude > p.Latitude) {
			x := (b.Longitude-a.Longitude)*(p.Latitude-a.Latitude)/(b.Latitude-a.Latitude) + a.Longitude
			if p.Longitude < x {
				inside = !inside
			}
		}
	}
	return inside
}
