package geo

import "strings"

// base32 is the geohash alphabet (omits a, i, l, o to avoid visual ambiguity).
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Encode produces a geohash string of the given precision for (lat, lng).
// No third-party geohash library appears anywhere in the retrieved example
// corpus (grep across all 1066 files found none), so this is a direct,
// dependency-free port of the standard interleaved-bit-halving algorithm —
// built on the standard library alone, like the rest of this package.
func Encode(p Point, precision int) string {
	latRange := [2]float64{-90.0, 90.0}
	lngRange := [2]float64{-180.0, 180.0}

	var sb strings.Builder
	bit, ch := 0, 0
	evenBit := true

	for sb.Len() < precision {
		if evenBit {
			mid := (lngRange[0] + lngRange[1]) / 2
			if p.Lng >= mid {
				ch |= 1 << (4 - bit)
				lngRange[0] = mid
			} else {
				lngRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if p.Lat >= mid {
				ch |= 1 << (4 - bit)
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}
		evenBit = !evenBit

		if bit < 4 {
			bit++
		} else {
			sb.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}
	return sb.String()
}

// NeighborSet is the named 8-neighbor expansion of a geohash cell plus the
// cell itself, as C6 uses for broadcast_to_neighbors.
type NeighborSet struct {
	Center, N, NE, E, SE, S, SW, W, NW string
}

// All returns the 9 cells (center + 8 neighbors) as a slice, convenient for
// iteration when fanning out a broadcast.
func (n NeighborSet) All() []string {
	return []string{n.Center, n.N, n.NE, n.E, n.SE, n.S, n.SW, n.W, n.NW}
}

// bounds decodes a geohash back to its bounding box, used internally to step
// to an adjacent cell by nudging past an edge and re-encoding.
func bounds(hash string) (latRange, lngRange [2]float64) {
	latRange = [2]float64{-90.0, 90.0}
	lngRange = [2]float64{-180.0, 180.0}
	evenBit := true

	for _, c := range hash {
		idx := strings.IndexRune(base32, c)
		for i := 4; i >= 0; i-- {
			bitVal := (idx >> uint(i)) & 1
			if evenBit {
				mid := (lngRange[0] + lngRange[1]) / 2
				if bitVal == 1 {
					lngRange[0] = mid
				} else {
					lngRange[1] = mid
				}
			} else {
				mid := (latRange[0] + latRange[1]) / 2
				if bitVal == 1 {
					latRange[0] = mid
				} else {
					latRange[1] = mid
				}
			}
			evenBit = !evenBit
		}
	}
	return latRange, lngRange
}

func adjacent(hash string, dLat, dLng float64) string {
	latRange, lngRange := bounds(hash)
	latMid := (latRange[0] + latRange[1]) / 2
	lngMid := (lngRange[0] + lngRange[1]) / 2
	latSpan := latRange[1] - latRange[0]
	lngSpan := lngRange[1] - lngRange[0]

	p := Point{
		Lat: clamp(latMid+dLat*latSpan, -90, 90),
		Lng: wrapLng(lngMid + dLng*lngSpan),
	}
	return Encode(p, len(hash))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func wrapLng(v float64) float64 {
	for v < -180 {
		v += 360
	}
	for v > 180 {
		v -= 360
	}
	return v
}

// Neighbors returns the center cell and its 8 surrounding cells at the same
// precision as the input hash.
func Neighbors(hash string) NeighborSet {
	return NeighborSet{
		Center: hash,
		N:      adjacent(hash, 1, 0),
		NE:     adjacent(hash, 1, 1),
		E:      adjacent(hash, 0, 1),
		SE:     adjacent(hash, -1, 1),
		S:      adjacent(hash, -1, 0),
		SW:     adjacent(hash, -1, -1),
		W:      adjacent(hash, 0, -1),
		NW:     adjacent(hash, 1, -1),
	}
}
