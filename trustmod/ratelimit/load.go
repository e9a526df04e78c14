package ratelimit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/michaeltrefry/Yapplr-sub003/models"
)

type opConfigJSON struct {
	BaseLimit          int `json:"baseLimit"`
	WindowSeconds      int `json:"windowSeconds"`
	BurstLimit         int `json:"burstLimit"`
	BurstWindowSeconds int `json:"burstWindowSeconds"`
}

type fileConfig struct {
	Enabled                  *bool                      `json:"enabled"`
	ViolationThreshold       *int                       `json:"violationThreshold"`
	ViolationWindowSeconds   *int                       `json:"violationWindowSeconds"`
	AutoBlockDurationSeconds *int                       `json:"autoBlockDurationSeconds"`
	ExemptRoles              []models.UserRole          `json:"exemptRoles"`
	Operations               map[Operation]opConfigJSON `json:"operations"`
}

// LoadConfigFromFileJSON merges per-operation and threshold overrides from a
// JSON file over DefaultConfig.
func LoadConfigFromFileJSON(p string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(p)
	if err != nil {
		return cfg, err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return cfg, err
	}

	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return cfg, err
	}

	if fc.Enabled != nil {
		cfg.Enabled = *fc.Enabled
	}
	if fc.ViolationThreshold != nil {
		cfg.ViolationThreshold = *fc.ViolationThreshold
	}
	if fc.ViolationWindowSeconds != nil {
		cfg.ViolationWindow = time.Duration(*fc.ViolationWindowSeconds) * time.Second
	}
	if fc.AutoBlockDurationSeconds != nil {
		cfg.AutoBlockDuration = time.Duration(*fc.AutoBlockDurationSeconds) * time.Second
	}
	if fc.ExemptRoles != nil {
		cfg.ExemptRoles = fc.ExemptRoles
	}
	for op, oc := range fc.Operations {
		if oc.BaseLimit < 1 || oc.BurstLimit < 1 || oc.WindowSeconds < 1 || oc.BurstWindowSeconds < 1 {
			return cfg, fmt.Errorf("invalid rate limit config for operation %s", op)
		}
		cfg.Operations[op] = OpConfig{
			BaseLimit:   oc.BaseLimit,
			Window:      time.Duration(oc.WindowSeconds) * time.Second,
			BurstLimit:  oc.BurstLimit,
			BurstWindow: time.Duration(oc.BurstWindowSeconds) * time.Second,
		}
	}
	return cfg, nil
}
