package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt              = 1.0 / 60.0
	DefaultDuration        = 10.0
	DefaultGravity         = -9.81
	DefaultIterations      = 10
	DefaultWorkers         = 4
	DefaultPadding         = 0.1
	DefaultContactBeta     = 0.2
	DefaultBounceThreshold = 1.0
	DefaultSleepLinear     = 0.05
	DefaultSleepAngular    = 0.05
	DefaultSleepDelay      = 0.5
)

type Config struct {
	Scene      string        `yaml:"scene"`
	Dt         float64       `yaml:"dt"`
	Duration   float64       `yaml:"duration"`
	Gravity    GravityConfig `yaml:"gravity"`
	Iterations int           `yaml:"iterations"`
	Workers    int           `yaml:"workers"`
	BroadPhase BroadConfig   `yaml:"broad_phase"`
	Contact    ContactConfig `yaml:"contact"`
	Sleep      SleepConfig   `yaml:"sleep"`
}

type GravityConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type BroadConfig struct {
	Padding float64 `yaml:"padding"`
}

type ContactConfig struct {
	Beta            float64 `yaml:"beta"`
	BounceThreshold float64 `yaml:"bounce_threshold"`
}

type SleepConfig struct {
	Linear  float64 `yaml:"linear"`
	Angular float64 `yaml:"angular"`
	Delay   float64 `yaml:"delay"`
}

func DefaultConfig() *Config {
	return &Config{
		Scene:      "drop",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Gravity:    GravityConfig{Y: DefaultGravity},
		Iterations: DefaultIterations,
		Workers:    DefaultWorkers,
		BroadPhase: BroadConfig{Padding: DefaultPadding},
		Contact: ContactConfig{
			Beta:            DefaultContactBeta,
			BounceThreshold: DefaultBounceThreshold,
		},
		Sleep: SleepConfig{
			Linear:  DefaultSleepLinear,
			Angular: DefaultSleepAngular,
			Delay:   DefaultSleepDelay,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
