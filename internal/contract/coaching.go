package contract

import (
	"fmt"
	"regexp"
)

var drillIDPattern = regexp.MustCompile(`^drill_[a-z0-9_]+$`)

// Strength is an area where the speaker performed well.
type Strength struct {
	Area        FocusMetric `json:"area" bson:"area"`
	Observation string      `json:"observation" bson:"observation"`
}

// FocusArea is the primary area to work on next.
type FocusArea struct {
	Area         FocusMetric `json:"area" bson:"area"`
	CurrentScore int         `json:"current_score" bson:"current_score"`
	TargetScore  int         `json:"target_score" bson:"target_score"`
	Observation  string      `json:"observation" bson:"observation"`
	Impact       string      `json:"impact" bson:"impact"`
}

// RecommendedDrill references one drill from the library.
type RecommendedDrill struct {
	DrillID  string `json:"drill_id" bson:"drill_id"`
	Reason   string `json:"reason" bson:"reason"`
	Priority int    `json:"priority" bson:"priority"`
}

// CoachingResponse is the schema for LLM-generated coaching output. The
// model selects drills from the library and never invents new ones; every
// drill_id must exist in the loaded DrillLibrary.
type CoachingResponse struct {
	SessionID         string             `json:"session_id" bson:"session_id"`
	Summary           string             `json:"summary" bson:"summary"`
	Strengths         []Strength         `json:"strengths" bson:"strengths"`
	FocusArea         FocusArea          `json:"focus_area" bson:"focus_area"`
	RecommendedDrills []RecommendedDrill `json:"recommended_drills" bson:"recommended_drills"`
	NextSessionGoal   string             `json:"next_session_goal" bson:"next_session_goal"`
}

// Validate enforces the CoachingResponse shape. Drill-id membership in the
// library is checked separately by the coaching selector, which repairs
// invalid ids instead of failing; everything here is a hard error.
func (c *CoachingResponse) Validate() error {
	if c.SessionID == "" {
		return &ValidationError{Field: "session_id", Msg: "required"}
	}
	if len(c.Summary) < 50 || len(c.Summary) > 500 {
		return &ValidationError{Field: "summary", Msg: "must be 50-500 characters"}
	}
	if len(c.Strengths) < 1 || len(c.Strengths) > 3 {
		return &ValidationError{Field: "strengths", Msg: "must contain 1-3 entries"}
	}
	for i, s := range c.Strengths {
		if !s.Area.Valid() {
			return &ValidationError{Field: fmt.Sprintf("strengths[%d].area", i), Msg: fmt.Sprintf("unknown area %q", s.Area)}
		}
		if s.Observation == "" {
			return &ValidationError{Field: fmt.Sprintf("strengths[%d].observation", i), Msg: "required"}
		}
	}
	if !c.FocusArea.Area.Valid() {
		return &ValidationError{Field: "focus_area.area", Msg: fmt.Sprintf("unknown area %q", c.FocusArea.Area)}
	}
	if c.FocusArea.CurrentScore < 0 || c.FocusArea.CurrentScore > 100 {
		return &ValidationError{Field: "focus_area.current_score", Msg: "must be in [0,100]"}
	}
	if c.FocusArea.TargetScore < 0 || c.FocusArea.TargetScore > 100 {
		return &ValidationError{Field: "focus_area.target_score", Msg: "must be in [0,100]"}
	}
	if c.FocusArea.TargetScore < c.FocusArea.CurrentScore {
		return &ValidationError{Field: "focus_area.target_score", Msg: "must be >= current_score"}
	}
	if len(c.RecommendedDrills) < 1 || len(c.RecommendedDrills) > 3 {
		return &ValidationError{Field: "recommended_drills", Msg: "must contain 1-3 entries"}
	}
	seen := map[int]bool{}
	for i, d := range c.RecommendedDrills {
		if !drillIDPattern.MatchString(d.DrillID) {
			return &ValidationError{Field: fmt.Sprintf("recommended_drills[%d].drill_id", i), Msg: fmt.Sprintf("malformed id %q", d.DrillID)}
		}
		if d.Priority < 1 || d.Priority > 3 {
			return &ValidationError{Field: fmt.Sprintf("recommended_drills[%d].priority", i), Msg: "must be in [1,3]"}
		}
		if seen[d.Priority] {
			return &ValidationError{Field: "recommended_drills", Msg: "duplicate priority values"}
		}
		seen[d.Priority] = true
	}
	if len(c.NextSessionGoal) < 20 || len(c.NextSessionGoal) > 200 {
		return &ValidationError{Field: "next_session_goal", Msg: "must be 20-200 characters"}
	}
	return nil
}
