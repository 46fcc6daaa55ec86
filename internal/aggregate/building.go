// Package aggregate projects room-level occupancy into building-level
// totals. Pure functions; no state.
package aggregate

import "strings"

// BuildingOccupancy sums the counts of every room whose name starts with
// the building code followed by a separator ('-' or ' '). Rooms matching
// no known code simply contribute to no total.
func BuildingOccupancy(occupancy map[string]int, code string) int {
	total := 0
	for room, count := range occupancy {
		if matchesBuilding(room, code) {
			total += count
		}
	}
	return total
}

// Totals computes BuildingOccupancy for each code in one pass over the map.
func Totals(occupancy map[string]int, codes []string) map[string]int {
	totals := make(map[string]int, len(codes))
	for _, code := range codes {
		totals[code] = 0
	}
	for room, count := range occupancy {
		for _, code := range codes {
			if matchesBuilding(room, code) {
				totals[code] += count
			}
		}
	}
	return totals
}

func matchesBuilding(room, code string) bool {
	if code == "" || len(room) <= len(code) || !strings.HasPrefix(room, code) {
		return false
	}
	switch room[len(code)] {
	case '-', ' ':
		return true
	}
	return false
}
