package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// DrillZone is the primary skill zone a drill targets. Zones share names
// with focus metrics so the coaching selector can map between them.
type DrillZone string

const (
	ZonePace         DrillZone = "pace"
	ZoneFluency      DrillZone = "fluency"
	ZoneClarity      DrillZone = "clarity"
	ZoneVocalVariety DrillZone = "vocal_variety"
	ZoneStructure    DrillZone = "structure"
	ZoneConfidence   DrillZone = "confidence"
)

// Zones lists every zone in a fixed order.
var Zones = []DrillZone{ZonePace, ZoneFluency, ZoneClarity, ZoneVocalVariety, ZoneStructure, ZoneConfidence}

// Valid reports whether z is a known zone.
func (z DrillZone) Valid() bool {
	for _, known := range Zones {
		if z == known {
			return true
		}
	}
	return false
}

// Drill is a single practice drill. Drills are static data; the coaching
// model selects from them and never invents new ones.
type Drill struct {
	DrillID        string    `json:"drill_id"`
	Name           string    `json:"name"`
	Zone           DrillZone `json:"zone"`
	Difficulty     string    `json:"difficulty"`
	Targets        []string  `json:"targets"`
	DurationSec    int       `json:"duration_sec"`
	Instructions   string    `json:"instructions"`
	SuccessMetric  string    `json:"success_metric"`
	FailureSignals []string  `json:"failure_signals,omitempty"`
}

// DrillLibrary is the versioned, immutable drill catalogue. It is loaded
// once at startup; the id and zone indexes make lookups O(1)/O(k).
type DrillLibrary struct {
	Version string  `json:"version"`
	Drills  []Drill `json:"drills"`

	byID   map[string]*Drill
	byZone map[DrillZone][]*Drill
}

var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// LoadDrillLibrary reads and validates a drill library JSON file.
func LoadDrillLibrary(path string) (*DrillLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drill library: %w", err)
	}
	var lib DrillLibrary
	if err := json.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("parse drill library: %w", err)
	}
	if err := lib.buildIndexes(); err != nil {
		return nil, err
	}
	return &lib, nil
}

func (l *DrillLibrary) buildIndexes() error {
	if !semverPattern.MatchString(l.Version) {
		return &ValidationError{Field: "version", Msg: fmt.Sprintf("not a semantic version: %q", l.Version)}
	}
	if len(l.Drills) == 0 {
		return &ValidationError{Field: "drills", Msg: "library is empty"}
	}
	l.byID = make(map[string]*Drill, len(l.Drills))
	l.byZone = make(map[DrillZone][]*Drill)
	for i := range l.Drills {
		d := &l.Drills[i]
		if !drillIDPattern.MatchString(d.DrillID) {
			return &ValidationError{Field: "drills", Msg: fmt.Sprintf("malformed drill_id %q", d.DrillID)}
		}
		if _, dup := l.byID[d.DrillID]; dup {
			return &ValidationError{Field: "drills", Msg: fmt.Sprintf("duplicate drill_id %q", d.DrillID)}
		}
		if !d.Zone.Valid() {
			return &ValidationError{Field: "drills", Msg: fmt.Sprintf("drill %s has unknown zone %q", d.DrillID, d.Zone)}
		}
		if len(d.Targets) == 0 {
			return &ValidationError{Field: "drills", Msg: fmt.Sprintf("drill %s has no targets", d.DrillID)}
		}
		l.byID[d.DrillID] = d
		l.byZone[d.Zone] = append(l.byZone[d.Zone], d)
	}
	return nil
}

// Get returns the drill with the given id, or nil.
func (l *DrillLibrary) Get(drillID string) *Drill {
	return l.byID[drillID]
}

// Has reports whether drillID exists in the library.
func (l *DrillLibrary) Has(drillID string) bool {
	_, ok := l.byID[drillID]
	return ok
}

// ForZone returns the drills in a zone, in library order.
func (l *DrillLibrary) ForZone(zone DrillZone) []*Drill {
	return l.byZone[zone]
}

// First returns the first drill in the library. Used as the fallback of
// last resort when repairing invalid drill references.
func (l *DrillLibrary) First() *Drill {
	return &l.Drills[0]
}
