package contract

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLibrary(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drills.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validLibrary = `{
  "version": "1.0.0",
  "drills": [
    {"drill_id": "drill_pace_metronome", "name": "Metronome", "zone": "pace", "difficulty": "beginner", "targets": ["wpm"], "duration_sec": 180, "instructions": "Read to a beat.", "success_metric": "steady wpm"},
    {"drill_id": "drill_pace_gearshift", "name": "Gear Shift", "zone": "pace", "difficulty": "intermediate", "targets": ["wpm"], "duration_sec": 240, "instructions": "Vary speed.", "success_metric": "controlled shifts"},
    {"drill_id": "drill_fluency_silence", "name": "Silence Swap", "zone": "fluency", "difficulty": "beginner", "targets": ["filler_rate"], "duration_sec": 180, "instructions": "Pause instead of um.", "success_metric": "fewer fillers"}
  ]
}`

func TestLoadDrillLibrary(t *testing.T) {
	lib, err := LoadDrillLibrary(writeLibrary(t, validLibrary))
	if err != nil {
		t.Fatalf("LoadDrillLibrary: %v", err)
	}
	if lib.Version != "1.0.0" {
		t.Errorf("version = %q, want 1.0.0", lib.Version)
	}
	if !lib.Has("drill_pace_metronome") {
		t.Error("Has(drill_pace_metronome) = false")
	}
	if lib.Has("drill_does_not_exist") {
		t.Error("Has(drill_does_not_exist) = true")
	}
	if d := lib.Get("drill_fluency_silence"); d == nil || d.Zone != ZoneFluency {
		t.Errorf("Get(drill_fluency_silence) = %+v", d)
	}
	if got := lib.ForZone(ZonePace); len(got) != 2 {
		t.Errorf("ForZone(pace) returned %d drills, want 2", len(got))
	}
	if lib.First().DrillID != "drill_pace_metronome" {
		t.Errorf("First() = %s, want drill_pace_metronome", lib.First().DrillID)
	}
}

func TestLoadDrillLibraryRejectsBadLibraries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad version", `{"version": "v1", "drills": [{"drill_id": "drill_a", "name": "A", "zone": "pace", "targets": ["wpm"]}]}`},
		{"empty library", `{"version": "1.0.0", "drills": []}`},
		{"malformed drill id", `{"version": "1.0.0", "drills": [{"drill_id": "Drill-A", "name": "A", "zone": "pace", "targets": ["wpm"]}]}`},
		{"duplicate drill id", `{"version": "1.0.0", "drills": [
			{"drill_id": "drill_a", "name": "A", "zone": "pace", "targets": ["wpm"]},
			{"drill_id": "drill_a", "name": "B", "zone": "pace", "targets": ["wpm"]}
		]}`},
		{"unknown zone", `{"version": "1.0.0", "drills": [{"drill_id": "drill_a", "name": "A", "zone": "charisma", "targets": ["wpm"]}]}`},
		{"no targets", `{"version": "1.0.0", "drills": [{"drill_id": "drill_a", "name": "A", "zone": "pace", "targets": []}]}`},
		{"not json", `not json at all`},
	}
	for _, tt := range tests {
		if _, err := LoadDrillLibrary(writeLibrary(t, tt.content)); err == nil {
			t.Errorf("%s: LoadDrillLibrary accepted an invalid library", tt.name)
		}
	}
}

func TestLoadDrillLibraryMissingFile(t *testing.T) {
	if _, err := LoadDrillLibrary(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadDrillLibrary on a missing file returned no error")
	}
}
