package config

var Presets = map[string]map[string]*Config{
	"drop": {
		"single": {
			Scene: "drop", Dt: DefaultDt, Duration: 5.0,
			Gravity: GravityConfig{Y: DefaultGravity}, Iterations: 10, Workers: DefaultWorkers,
			BroadPhase: BroadConfig{Padding: DefaultPadding},
			Contact:    ContactConfig{Beta: DefaultContactBeta, BounceThreshold: DefaultBounceThreshold},
			Sleep:      SleepConfig{Linear: DefaultSleepLinear, Angular: DefaultSleepAngular, Delay: DefaultSleepDelay},
		},
		"rain": {
			Scene: "drop", Dt: DefaultDt, Duration: 20.0,
			Gravity: GravityConfig{Y: DefaultGravity}, Iterations: 8, Workers: DefaultWorkers,
			BroadPhase: BroadConfig{Padding: 0.2},
			Contact:    ContactConfig{Beta: DefaultContactBeta, BounceThreshold: DefaultBounceThreshold},
			Sleep:      SleepConfig{Linear: DefaultSleepLinear, Angular: DefaultSleepAngular, Delay: DefaultSleepDelay},
		},
	},
	"stack": {
		"tower": {
			Scene: "stack", Dt: DefaultDt, Duration: 15.0,
			Gravity: GravityConfig{Y: DefaultGravity}, Iterations: 16, Workers: DefaultWorkers,
			BroadPhase: BroadConfig{Padding: DefaultPadding},
			Contact:    ContactConfig{Beta: 0.1, BounceThreshold: DefaultBounceThreshold},
			Sleep:      SleepConfig{Linear: DefaultSleepLinear, Angular: DefaultSleepAngular, Delay: 1.0},
		},
		"loose": {
			Scene: "stack", Dt: DefaultDt, Duration: 15.0,
			Gravity: GravityConfig{Y: DefaultGravity}, Iterations: 6, Workers: DefaultWorkers,
			BroadPhase: BroadConfig{Padding: DefaultPadding},
			Contact:    ContactConfig{Beta: DefaultContactBeta, BounceThreshold: DefaultBounceThreshold},
			Sleep:      SleepConfig{Linear: DefaultSleepLinear, Angular: DefaultSleepAngular, Delay: DefaultSleepDelay},
		},
	},
	"bounce": {
		"lively": {
			Scene: "bounce", Dt: DefaultDt, Duration: 12.0,
			Gravity: GravityConfig{Y: DefaultGravity}, Iterations: 10, Workers: DefaultWorkers,
			BroadPhase: BroadConfig{Padding: DefaultPadding},
			Contact:    ContactConfig{Beta: DefaultContactBeta, BounceThreshold: 0.2},
			Sleep:      SleepConfig{Linear: DefaultSleepLinear, Angular: DefaultSleepAngular, Delay: DefaultSleepDelay},
		},
	},
	"pendulum": {
		"swing": {
			Scene: "pendulum", Dt: DefaultDt, Duration: 30.0,
			Gravity: GravityConfig{Y: DefaultGravity}, Iterations: 10, Workers: DefaultWorkers,
			BroadPhase: BroadConfig{Padding: DefaultPadding},
			Contact:    ContactConfig{Beta: DefaultContactBeta, BounceThreshold: DefaultBounceThreshold},
			Sleep:      SleepConfig{Linear: 0.01, Angular: 0.01, Delay: 2.0},
		},
	},
	"wall": {
		"breach": {
			Scene: "wall", Dt: DefaultDt, Duration: 10.0,
			Gravity: GravityConfig{Y: DefaultGravity}, Iterations: 12, Workers: DefaultWorkers,
			BroadPhase: BroadConfig{Padding: 0.2},
			Contact:    ContactConfig{Beta: DefaultContactBeta, BounceThreshold: DefaultBounceThreshold},
			Sleep:      SleepConfig{Linear: DefaultSleepLinear, Angular: DefaultSleepAngular, Delay: DefaultSleepDelay},
		},
	},
}

func GetPreset(scene, preset string) *Config {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	cfg, ok := scenePresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(scene string) []string {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenePresets))
	for name := range scenePresets {
		names = append(names, name)
	}
	return names
}
