package aggregate

import "testing"

func TestBuildingOccupancy(t *testing.T) {
	occupancy := map[string]int{
		"DM-101":      2,
		"DM-203":      1,
		"CCIS-1-140":  4,
		"CAB 235":     3,
		"DMX-1":       7, // different building, shares a prefix
		"DM101":       5, // no separator after the code
		"Rutherford":  1,
	}

	tests := []struct {
		name string
		code string
		want int
	}{
		{name: "dash separated rooms", code: "DM", want: 3},
		{name: "multi segment room names", code: "CCIS", want: 4},
		{name: "space separator", code: "CAB", want: 3},
		{name: "prefix of another code does not match", code: "D", want: 0},
		{name: "unknown building", code: "ETLC", want: 0},
		{name: "empty code", code: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildingOccupancy(occupancy, tt.code); got != tt.want {
				t.Errorf("BuildingOccupancy(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestBuildingOccupancyEmptyMap(t *testing.T) {
	if got := BuildingOccupancy(nil, "DM"); got != 0 {
		t.Errorf("BuildingOccupancy on nil map = %d, want 0", got)
	}
}

func TestTotals(t *testing.T) {
	occupancy := map[string]int{
		"DM-101":     2,
		"DM-203":     1,
		"CCIS-1-140": 4,
	}

	totals := Totals(occupancy, []string{"DM", "CCIS", "ETLC"})

	want := map[string]int{"DM": 3, "CCIS": 4, "ETLC": 0}
	for code, count := range want {
		if totals[code] != count {
			t.Errorf("Totals()[%q] = %d, want %d", code, totals[code], count)
		}
	}
}
