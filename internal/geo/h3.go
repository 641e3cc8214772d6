package geo

import (
	"github.com/richxcame/scooter-ride/pkg/models"
	"github.com/uber/h3-go/v4"
)

// H3 resolution levels.
// See: https://h3geo.org/docs/core-library/restable
const (
	// H3ResolutionZone indexes polygon zones (~175m edge, ~0.11 km²).
	H3ResolutionZone = 9

	// H3ResolutionCity is used for city-level grouping (~3.2 km edge, ~36.13 km²).
	H3ResolutionCity = 6
)

// CellFor converts a coordinate to an H3 cell at the given resolution.
// Out-of-range input yields the zero cell; validate upstream.
func CellFor(coord models.Coordinate, resolution int) h3.Cell {
	cell, err := h3.LatLngToCell(h3.NewLatLng(coord.Latitude, coord.Longitude), resolution)
	if err != nil {
		return 0
	}
	return cell
}

// CellCenter returns the center coordinate of an H3 cell.
func CellCenter(cell h3.Cell) models.Coordinate {
	latLng, err := cell.LatLng()
	if err != nil {
		return models.Coordinate{}
	}
	return models.Coordinate{Latitude: latLng.Lat, Longitude: latLng.Lng}
}

// RingCells returns every cell whose center lies inside ring, plus the cells
// holding each ring vertex so thin polygons are never missed.
func RingCells(ring []models.Coordinate, resolution int) []h3.Cell {
	if len(ring) < 3 {
		return nil
	}

	loop := make(h3.GeoLoop, 0, len(ring))
	for _, c := range ring {
		loop = append(loop, h3.NewLatLng(c.Latitude, c.Longitude))
	}

	seen := make(map[h3.Cell]struct{})
	var cells []h3.Cell
	add := func(c h3.Cell) {
		if c == 0 {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		cells = append(cells, c)
	}

	if inner, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: loop}, resolution); err == nil {
		for _, c := range inner {
			add(c)
		}
	}
	for _, c := range ring {
		add(CellFor(c, resolution))
	}
	return cells
}

// CellToString converts an H3 cell to its hex string representation.
func CellToString(cell h3.Cell) string {
	return cell.String()
}

// Disk returns the cell holding coord and its k-ring neighbours.
func Disk(coord models.Coordinate, resolution, k int) []h3.Cell {
	origin := CellFor(coord, resolution)
	if origin == 0 {
		return nil
	}
	cells, err := origin.GridDisk(k)
	if err != nil {
		return []h3.Cell{origin}
	}
	return cells
}
