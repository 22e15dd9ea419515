package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// FixtureStart is the first timestamp of WriteBuilding data (a Monday).
var FixtureStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Fixture values written by WriteBuilding. Z3 runs at 5 degrees and is
// dropped by the zone temperature filter.
const (
	FixtureHours   = 48
	FixtureCooling = 10.0
	FixtureHSP     = 70.0
	FixtureCSP     = 76.0
)

// FixtureZones describes each zone written by WriteBuilding.
var FixtureZones = []struct {
	Zone    string
	AHU     string
	IAT     float64
	Airflow float64
}{
	{Zone: "Z1", AHU: "AHU1", IAT: 68, Airflow: 100},
	{Zone: "Z2", AHU: "AHU2", IAT: 74, Airflow: 200},
	{Zone: "Z3", AHU: "AHU1", IAT: 5, Airflow: 50},
}

// FixtureDAT holds the discharge air temperature per AHU.
var FixtureDAT = map[string]float64{"AHU1": 55, "AHU2": 60}

// BuildingFiles maps the input keys to their file names.
var BuildingFiles = map[string]string{
	"iat":     "zone_temps.csv",
	"hsp":     "zone_heating_setpoints.csv",
	"csp":     "zone_cooling_setpoints.csv",
	"airflow": "zone_airflow.csv",
	"ahu_dat": "ahu_discharge_temps.csv",
	"map":     "zone_to_ahu_map.csv",
	"cooling": "building_total_cooling.csv",
}

// BuildingCSV renders the seven fixture files in memory, keyed like BuildingFiles.
func BuildingCSV() map[string]string {
	zoneHeader := "timestamp"
	for _, z := range FixtureZones {
		zoneHeader += "," + z.Zone
	}

	var iat, hsp, csp, airflow, dat, cooling strings.Builder
	iat.WriteString(zoneHeader + "\n")
	hsp.WriteString(zoneHeader + "\n")
	csp.WriteString(zoneHeader + "\n")
	airflow.WriteString(zoneHeader + "\n")
	dat.WriteString("timestamp,AHU1,AHU2\n")
	cooling.WriteString("timestamp,cooling_value\n")

	for h := 0; h < FixtureHours; h++ {
		ts := FixtureStart.Add(time.Duration(h) * time.Hour).Format("2006-01-02 15:04:05")
		iat.WriteString(ts)
		hsp.WriteString(ts)
		csp.WriteString(ts)
		airflow.WriteString(ts)
		for _, z := range FixtureZones {
			fmt.Fprintf(&iat, ",%g", z.IAT)
			fmt.Fprintf(&hsp, ",%g", FixtureHSP)
			fmt.Fprintf(&csp, ",%g", FixtureCSP)
			fmt.Fprintf(&airflow, ",%g", z.Airflow)
		}
		iat.WriteString("\n")
		hsp.WriteString("\n")
		csp.WriteString("\n")
		airflow.WriteString("\n")
		fmt.Fprintf(&dat, "%s,%g,%g\n", ts, FixtureDAT["AHU1"], FixtureDAT["AHU2"])
		fmt.Fprintf(&cooling, "%s,%g\n", ts, FixtureCooling)
	}

	var zoneMap strings.Builder
	zoneMap.WriteString("ZoneID,AHUID\n")
	for _, z := range FixtureZones {
		fmt.Fprintf(&zoneMap, "%s,%s\n", z.Zone, z.AHU)
	}

	return map[string]string{
		"iat":     iat.String(),
		"hsp":     hsp.String(),
		"csp":     csp.String(),
		"airflow": airflow.String(),
		"ahu_dat": dat.String(),
		"map":     zoneMap.String(),
		"cooling": cooling.String(),
	}
}

// WriteBuilding writes the seven fixture CSV files into dir.
func WriteBuilding(t *testing.T, dir string) {
	t.Helper()

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("create building dir: %v", err)
	}
	for key, content := range BuildingCSV() {
		path := filepath.Join(dir, BuildingFiles[key])
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

// FixtureShares returns the expected per-hour zonal cooling of Z1 and Z2.
func FixtureShares() (z1, z2 float64) {
	p1 := (FixtureZones[0].IAT - FixtureDAT["AHU1"]) * FixtureZones[0].Airflow
	p2 := (FixtureZones[1].IAT - FixtureDAT["AHU2"]) * FixtureZones[1].Airflow
	return FixtureCooling * p1 / (p1 + p2), FixtureCooling * p2 / (p1 + p2)
}
