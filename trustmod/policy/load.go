package policy

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type fileConfig struct {
	Multiplier       []Step[float64]         `json:"multiplier"`
	Priority         []Step[int]             `json:"priority"`
	Visibility       []Step[VisibilityLevel] `json:"visibility"`
	ReportThreshold  []Step[float64]         `json:"reportThreshold"`
	AutoHideBelow    *float64                `json:"autoHideBelow"`
	ActionThresholds map[Action]float64      `json:"actionThresholds"`
}

// LoadFromFileJSON reads ladder and threshold overrides from a JSON config
// file. Omitted sections keep their defaults. The result is validated; the
// returned policy is immutable from then on.
func LoadFromFileJSON(p string) (*Policy, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var cfg fileConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	pol := Default()
	if cfg.Multiplier != nil {
		pol.multiplier = cfg.Multiplier
	}
	if cfg.Priority != nil {
		pol.priority = cfg.Priority
	}
	if cfg.Visibility != nil {
		pol.visibility = cfg.Visibility
	}
	if cfg.ReportThreshold != nil {
		pol.reportThreshold = cfg.ReportThreshold
	}
	if cfg.AutoHideBelow != nil {
		pol.autoHideBelow = *cfg.AutoHideBelow
	}
	for action, threshold := range cfg.ActionThresholds {
		pol.actions[action] = threshold
	}

	if err := pol.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy config %s: %w", p, err)
	}
	return pol, nil
}

// Validate checks that every ladder is sorted by descending bound, bounded by
// [0,1], terminated at 0.0, and that the rate-limit multiplier is monotonically
// non-decreasing in trust score.
func (p *Policy) Validate() error {
	if err := checkLadder("multiplier", p.multiplier); err != nil {
		return err
	}
	if err := checkLadder("priority", p.priority); err != nil {
		return err
	}
	if err := checkLadder("visibility", p.visibility); err != nil {
		return err
	}
	if err := checkLadder("reportThreshold", p.reportThreshold); err != nil {
		return err
	}
	for i := 1; i < len(p.multiplier); i++ {
		if p.multiplier[i].Value > p.multiplier[i-1].Value {
			return fmt.Errorf("multiplier ladder not monotone at bound %f", p.multiplier[i].Bound)
		}
	}
	if p.autoHideBelow < 0 || p.autoHideBelow > 1 {
		return fmt.Errorf("autoHideBelow out of range: %f", p.autoHideBelow)
	}
	for action, threshold := range p.actions {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("action threshold out of range for %s: %f", action, threshold)
		}
	}
	return nil
}

func checkLadder[T any](name string, steps []Step[T]) error {
	if len(steps) == 0 {
		return fmt.Errorf("%s ladder is empty", name)
	}
	for i, s := range steps {
		if s.Bound < 0 || s.Bound > 1 {
			return fmt.Errorf("%s ladder bound out of range: %f", name, s.Bound)
		}
		if i > 0 && s.Bound >= steps[i-1].Bound {
			return fmt.Errorf("%s ladder not sorted descending at index %d", name, i)
		}
	}
	if steps[len(steps)-1].Bound != 0.0 {
		return fmt.Errorf("%s ladder must terminate at bound 0.0", name)
	}
	return nil
}
