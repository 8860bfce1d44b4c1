package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"CANOPY_LAYOUT":           "/env/layout.toml",
				"CANOPY_STATE_FORMAT":     "yaml",
				"CANOPY_SHUTDOWN_TIMEOUT": "10m",
				"CANOPY_ACTION_CAPACITY":  "9",
				"CANOPY_ONCE":             "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				LayoutFile:      "/env/layout.toml",
				StateFormat:     "yaml",
				ShutdownTimeout: 10 * time.Minute,
				ActionCapacity:  9,
				Once:            true,
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"CANOPY_LAYOUT":    "/env/layout.toml",
				"CANOPY_ID_SCHEME": "uuid",
			},
			changed: map[string]bool{"layout": true},
			initial: Config{
				LayoutFile: "/flag/layout.toml",
			},
			expected: Config{
				LayoutFile: "/flag/layout.toml",
				IDScheme:   "uuid",
			},
			wantErr: false,
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"CANOPY_SHUTDOWN_TIMEOUT": "not-a-duration",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"CANOPY_ACTION_CAPACITY": "not-a-number",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "handles bool '1' as true",
			envVars: map[string]string{
				"CANOPY_FRESH": "1",
			},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{Fresh: true},
			wantErr:  false,
		},
		{
			name: "handles bool 'false' as false",
			envVars: map[string]string{
				"CANOPY_ONCE": "false",
			},
			changed:  map[string]bool{},
			initial:  Config{Once: true},
			expected: Config{Once: false},
			wantErr:  false,
		},
		{
			name: "handles all field types correctly",
			envVars: map[string]string{
				"CANOPY_LAYOUT":           "/layout.toml",
				"CANOPY_STATE_DIR":        "/state",
				"CANOPY_STATE_FORMAT":     "sqlite",
				"CANOPY_WATCH":            "/device.toml",
				"CANOPY_ACTION_CAPACITY":  "2",
				"CANOPY_ID_SCHEME":        "sequence",
				"CANOPY_LOG_LEVEL":        "warn",
				"CANOPY_SHUTDOWN_TIMEOUT": "30s",
				"CANOPY_ONCE":             "1",
				"CANOPY_FRESH":            "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				LayoutFile:      "/layout.toml",
				StateDir:        "/state",
				StateFormat:     "sqlite",
				WatchFile:       "/device.toml",
				ActionCapacity:  2,
				IDScheme:        "sequence",
				LogLevel:        "warn",
				ShutdownTimeout: 30 * time.Second,
				Once:            true,
				Fresh:           true,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	trueVal := true

	fileConf := FileConfig{
		LayoutFile:  "/file/layout.toml",
		StateFormat: "yaml",
		WatchFile:   "/file/device.toml",
		Once:        &trueVal,
	}

	t.Setenv("CANOPY_LAYOUT", "/env/layout.toml")
	t.Setenv("CANOPY_STATE_FORMAT", "json")
	t.Setenv("CANOPY_STATE_DIR", "/env/state")

	changed := map[string]bool{
		"layout": true,
	}

	cfg := Config{
		LayoutFile: "/cli/layout.toml",
	}

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.LayoutFile != "/cli/layout.toml" {
		t.Errorf("LayoutFile = %v, want /cli/layout.toml (CLI should win)", cfg.LayoutFile)
	}
	if cfg.StateFormat != "json" {
		t.Errorf("StateFormat = %v, want json (env should override file)", cfg.StateFormat)
	}
	if cfg.StateDir != "/env/state" {
		t.Errorf("StateDir = %v, want /env/state (env should set)", cfg.StateDir)
	}
	if cfg.WatchFile != "/file/device.toml" {
		t.Errorf("WatchFile = %v, want /file/device.toml (file should set)", cfg.WatchFile)
	}
	if cfg.Once != true {
		t.Errorf("Once = %v, want true (file should set)", cfg.Once)
	}
}
