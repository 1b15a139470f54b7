// Package coaching turns a ScoreContract into drill recommendations using
// an external chat-completion model constrained to the drill library.
package coaching

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danielladerman/speakflow/internal/contract"
)

const systemPrompt = `You are a professional speech coach analyzing session results.

CRITICAL RULES:
1. You MUST select drills from the provided library - NEVER invent new drills
2. All drill_ids in your response MUST exist in the drill library
3. Your response MUST be valid JSON matching the schema exactly
4. Focus on ONE primary area for improvement (the focus_metric)
5. Be encouraging but honest - growth comes from acknowledging areas to improve

You will receive:
- Score contract with metrics and scores
- Available drills from the library

Respond with a coaching plan that:
1. Summarizes the session (2-3 sentences)
2. Identifies 1-3 strengths
3. Focuses on one area for improvement
4. Recommends 1-3 drills from the library
5. Sets a specific, measurable goal for next session`

// Options configures the coach.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Coach selects drills for a scored session via a chat-completion model.
// A coach with no API key is disabled; callers skip coaching entirely.
type Coach struct {
	library *contract.DrillLibrary
	opts    Options
	client  *http.Client
	log     *logrus.Entry
}

// NewCoach creates a coach over an already loaded drill library.
func NewCoach(library *contract.DrillLibrary, opts Options) *Coach {
	return &Coach{
		library: library,
		opts:    opts,
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     logrus.WithField("component", "coaching"),
	}
}

// Enabled reports whether the external model is configured.
func (c *Coach) Enabled() bool {
	return c.opts.APIKey != ""
}

// Library exposes the loaded drill library.
func (c *Coach) Library() *contract.DrillLibrary {
	return c.library
}

// Generate produces a validated CoachingResponse for the scored session.
// Invalid drill ids returned by the model are repaired against the
// library; any other shape violation is a hard error.
func (c *Coach) Generate(ctx context.Context, sc *contract.ScoreContract) (*contract.CoachingResponse, error) {
	candidates := c.candidateDrills(sc.FocusMetric)
	prompt := c.buildPrompt(sc, candidates)

	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("coaching completion: %w", err)
	}

	var response contract.CoachingResponse
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		return nil, &contract.ValidationError{Field: "coaching_response", Msg: fmt.Sprintf("model returned invalid JSON: %v", err)}
	}

	// Never trust the model's session id.
	response.SessionID = sc.SessionID

	c.repairDrillIDs(&response)

	if err := response.Validate(); err != nil {
		return nil, err
	}
	return &response, nil
}

// candidateDrills restricts the primary set to the focus zone, then adds
// two drills each from up to two other zones for variety.
func (c *Coach) candidateDrills(focus contract.FocusMetric) []*contract.Drill {
	drills := append([]*contract.Drill{}, c.library.ForZone(contract.DrillZone(focus))...)

	added := 0
	for _, zone := range contract.Zones {
		if zone == contract.DrillZone(focus) || added >= 2 {
			continue
		}
		zoneDrills := c.library.ForZone(zone)
		if len(zoneDrills) == 0 {
			continue
		}
		if len(zoneDrills) > 2 {
			zoneDrills = zoneDrills[:2]
		}
		drills = append(drills, zoneDrills...)
		added++
	}
	return drills
}

// repairDrillIDs substitutes safe fallbacks for every recommended drill id
// missing from the library: first drill of the response's focus zone, or
// the first drill in the library when that zone name is itself invalid.
func (c *Coach) repairDrillIDs(response *contract.CoachingResponse) {
	for i := range response.RecommendedDrills {
		rec := &response.RecommendedDrills[i]
		if c.library.Has(rec.DrillID) {
			continue
		}
		fallback := c.library.First()
		if zoneDrills := c.library.ForZone(contract.DrillZone(response.FocusArea.Area)); len(zoneDrills) > 0 {
			fallback = zoneDrills[0]
		}
		c.log.WithFields(logrus.Fields{
			"invalid_drill_id": rec.DrillID,
			"fallback":         fallback.DrillID,
		}).Warn("model recommended unknown drill, substituting")
		rec.DrillID = fallback.DrillID
	}
}

func (c *Coach) buildPrompt(sc *contract.ScoreContract, candidates []*contract.Drill) string {
	type drillOption struct {
		DrillID      string   `json:"drill_id"`
		Name         string   `json:"name"`
		Zone         string   `json:"zone"`
		Difficulty   string   `json:"difficulty"`
		Targets      []string `json:"targets"`
		DurationSec  int      `json:"duration_sec"`
		Instructions string   `json:"instructions,omitempty"`
	}
	options := make([]drillOption, 0, len(candidates))
	for _, d := range candidates {
		instructions := d.Instructions
		if len(instructions) > 200 {
			instructions = instructions[:200] + "..."
		}
		options = append(options, drillOption{
			DrillID:      d.DrillID,
			Name:         d.Name,
			Zone:         string(d.Zone),
			Difficulty:   d.Difficulty,
			Targets:      d.Targets,
			DurationSec:  d.DurationSec,
			Instructions: instructions,
		})
	}
	optionsJSON, _ := json.MarshalIndent(options, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "## Session Results\n\n")
	fmt.Fprintf(&b, "**Duration:** %.1f seconds\n", sc.DurationSec)
	fmt.Fprintf(&b, "**Focus Area:** %s\n\n", sc.FocusMetric)
	fmt.Fprintf(&b, "### Metrics\n")
	fmt.Fprintf(&b, "- Words per minute: %g\n", sc.Metrics.WPM)
	fmt.Fprintf(&b, "- Filler words per minute: %g\n", sc.Metrics.FillerPerMin)
	fmt.Fprintf(&b, "- Pause events: %d\n", sc.Metrics.PauseEvents)
	fmt.Fprintf(&b, "- Power pauses: %d\n", sc.Metrics.PowerPauses)
	fmt.Fprintf(&b, "- Pitch variance: %g Hz\n", sc.Metrics.PitchVariance)
	fmt.Fprintf(&b, "- Volume stability: %g\n\n", sc.Metrics.VolumeStability)
	fmt.Fprintf(&b, "### Scores (0-100)\n")
	fmt.Fprintf(&b, "- Pace: %d\n", sc.Scores.Pace)
	fmt.Fprintf(&b, "- Fluency: %d\n", sc.Scores.Fluency)
	fmt.Fprintf(&b, "- Clarity: %d\n", sc.Scores.Clarity)
	fmt.Fprintf(&b, "- Vocal Variety: %d\n", sc.Scores.VocalVariety)
	fmt.Fprintf(&b, "- Overall: %d\n\n", sc.Scores.Overall)
	fmt.Fprintf(&b, "### Flagged Events\n%s\n\n", formatFlags(sc.Flags))
	fmt.Fprintf(&b, "## Available Drills (SELECT FROM THESE ONLY)\n\n```json\n%s\n```\n\n", optionsJSON)
	fmt.Fprintf(&b, `## Required Response Format

Respond with valid JSON matching this structure:
{
  "session_id": "%s",
  "summary": "2-3 sentence overview",
  "strengths": [
    {"area": "pace|fluency|clarity|vocal_variety|structure|confidence", "observation": "specific observation"}
  ],
  "focus_area": {
    "area": "%s",
    "current_score": %d,
    "target_score": "realistic target 5-15 points higher",
    "observation": "specific observation about what needs work",
    "impact": "why improving this matters"
  },
  "recommended_drills": [
    {"drill_id": "drill_xxx", "reason": "why this drill helps", "priority": 1}
  ],
  "next_session_goal": "specific, measurable goal"
}

REMEMBER: All drill_ids MUST come from the Available Drills list above.`,
		sc.SessionID, sc.FocusMetric, currentScoreFor(sc))

	return b.String()
}

func formatFlags(flags []contract.Flag) string {
	if len(flags) == 0 {
		return "None"
	}
	if len(flags) > 10 {
		flags = flags[:10]
	}
	lines := make([]string, 0, len(flags))
	for _, f := range flags {
		lines = append(lines, fmt.Sprintf("- %s at %.1fs-%.1fs", f.Reason, f.TStart, f.TEnd))
	}
	return strings.Join(lines, "\n")
}

// currentScoreFor returns the score of the focus metric, or overall when
// the focus is not one of the four tracked scores.
func currentScoreFor(sc *contract.ScoreContract) int {
	switch sc.FocusMetric {
	case contract.FocusPace:
		return sc.Scores.Pace
	case contract.FocusFluency:
		return sc.Scores.Fluency
	case contract.FocusClarity:
		return sc.Scores.Clarity
	case contract.FocusVocalVariety:
		return sc.Scores.VocalVariety
	default:
		return sc.Scores.Overall
	}
}

// chat-completions request/response wire shapes.
type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Coach) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
		Temperature:    0.7,
		MaxTokens:      1000,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API %s: %s", resp.Status, truncate(string(data), 300))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion API returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
