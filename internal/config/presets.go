package config

import (
	"sort"
	"time"
)

// Presets are complete configurations keyed by name. GetPreset hands out
// copies, so callers may modify what they get.
var Presets = map[string]*Config{
	"default":    DefaultConfig(),
	"cautious":   cautious(),
	"aggressive": aggressive(),
	"no_latency": noLatency(),
}

// cautious drives slower and penalises steering changes harder.
func cautious() *Config {
	c := DefaultConfig()
	c.Horizon.RefSpeed = 30
	c.Weights.SteerRate = 500
	c.Weights.AccelRate = 200
	c.Weights.Steer = 100
	return c
}

// aggressive drives faster over a longer horizon with a larger budget.
func aggressive() *Config {
	c := DefaultConfig()
	c.Horizon.RefSpeed = 70
	c.Horizon.Steps = 25
	c.Horizon.Budget = time.Second
	c.Weights.SteerRate = 20
	c.Weights.Speed = 5
	return c
}

// noLatency removes actuation delay from the model, the server and the
// simulator.
func noLatency() *Config {
	c := DefaultConfig()
	c.Horizon.DelaySteps = 0
	c.Server.Latency = 0
	c.Sim.Latency = 0
	return c
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
