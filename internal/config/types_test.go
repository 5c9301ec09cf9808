// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
	"time"
)

func TestColorScheme_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		scheme  ColorScheme
		want    bool
		wantErr bool
	}{
		{ColorSchemeAuto, true, false},
		{ColorSchemeDark, true, false},
		{ColorSchemeLight, true, false},
		{"", false, true},
		{"garbage", false, true},
		{"AUTO", false, true},
		{"Dark", false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.scheme), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.scheme.IsValid()
			if isValid != tt.want {
				t.Errorf("ColorScheme(%q).IsValid() = %v, want %v", tt.scheme, isValid, tt.want)
			}
			if tt.wantErr {
				if len(errs) == 0 {
					t.Fatalf("ColorScheme(%q).IsValid() returned no errors, want error", tt.scheme)
				}
				if !errors.Is(errs[0], ErrInvalidColorScheme) {
					t.Errorf("error should wrap ErrInvalidColorScheme, got: %v", errs[0])
				}
			} else if len(errs) > 0 {
				t.Errorf("ColorScheme(%q).IsValid() returned unexpected errors: %v", tt.scheme, errs)
			}
		})
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level   LogLevel
		want    bool
		wantErr bool
	}{
		{LogLevelDebug, true, false},
		{LogLevelInfo, true, false},
		{LogLevelWarn, true, false},
		{LogLevelError, true, false},
		{"", false, true},
		{"trace", false, true},
		{"INFO", false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.level.IsValid()
			if isValid != tt.want {
				t.Errorf("LogLevel(%q).IsValid() = %v, want %v", tt.level, isValid, tt.want)
			}
			if tt.wantErr {
				if len(errs) == 0 {
					t.Fatalf("LogLevel(%q).IsValid() returned no errors, want error", tt.level)
				}
				if !errors.Is(errs[0], ErrInvalidLogLevel) {
					t.Errorf("error should wrap ErrInvalidLogLevel, got: %v", errs[0])
				}
			} else if len(errs) > 0 {
				t.Errorf("LogLevel(%q).IsValid() returned unexpected errors: %v", tt.level, errs)
			}
		})
	}
}

func TestShellName_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		shell   ShellName
		want    bool
		wantErr bool
	}{
		{"empty means platform default", "", true, false},
		{"named shell", "bash", true, false},
		{"embedded interpreter", "builtin", true, false},
		{"absolute path", "/usr/bin/fish", true, false},
		{"single space", " ", false, true},
		{"tabs only", "\t\t", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.shell.IsValid()
			if isValid != tt.want {
				t.Errorf("ShellName(%q).IsValid() = %v, want %v", tt.shell, isValid, tt.want)
			}
			if tt.wantErr {
				if len(errs) == 0 {
					t.Fatalf("ShellName(%q).IsValid() returned no errors, want error", tt.shell)
				}
				if !errors.Is(errs[0], ErrInvalidShellName) {
					t.Errorf("error should wrap ErrInvalidShellName, got: %v", errs[0])
				}
			} else if len(errs) > 0 {
				t.Errorf("ShellName(%q).IsValid() returned unexpected errors: %v", tt.shell, errs)
			}
		})
	}
}

func TestDebounceInterval_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		interval DebounceInterval
		want     bool
		wantErr  bool
	}{
		{"empty means default", "", true, false},
		{"milliseconds", "500ms", true, false},
		{"fractional seconds", "1.5s", true, false},
		{"minutes", "2m", true, false},
		{"bare zero", "0", true, false},
		{"not a duration", "abc", false, true},
		{"negative", "-5s", false, true},
		{"missing unit", "5", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.interval.IsValid()
			if isValid != tt.want {
				t.Errorf("DebounceInterval(%q).IsValid() = %v, want %v", tt.interval, isValid, tt.want)
			}
			if tt.wantErr {
				if len(errs) == 0 {
					t.Fatalf("DebounceInterval(%q).IsValid() returned no errors, want error", tt.interval)
				}
				if !errors.Is(errs[0], ErrInvalidDebounceInterval) {
					t.Errorf("error should wrap ErrInvalidDebounceInterval, got: %v", errs[0])
				}
			} else if len(errs) > 0 {
				t.Errorf("DebounceInterval(%q).IsValid() returned unexpected errors: %v", tt.interval, errs)
			}
		})
	}
}

func TestDebounceInterval_Duration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		interval DebounceInterval
		want     time.Duration
		wantErr  bool
	}{
		{"empty yields zero", "", 0, false},
		{"milliseconds", "500ms", 500 * time.Millisecond, false},
		{"compound", "1m30s", 90 * time.Second, false},
		{"not a duration", "fast", 0, true},
		{"negative", "-1s", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.interval.Duration()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DebounceInterval(%q).Duration() expected error, got nil", tt.interval)
				}
				if !errors.Is(err, ErrInvalidDebounceInterval) {
					t.Errorf("error should wrap ErrInvalidDebounceInterval, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DebounceInterval(%q).Duration() unexpected error: %v", tt.interval, err)
			}
			if got != tt.want {
				t.Errorf("DebounceInterval(%q).Duration() = %v, want %v", tt.interval, got, tt.want)
			}
		})
	}
}

func TestUIConfig_IsValid(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		cfg := UIConfig{ColorScheme: ColorSchemeAuto, Verbose: true}
		if isValid, errs := cfg.IsValid(); !isValid {
			t.Errorf("UIConfig.IsValid() = false, want true, errors: %v", errs)
		}
	})

	t.Run("invalid color scheme", func(t *testing.T) {
		t.Parallel()
		cfg := UIConfig{ColorScheme: "neon"}
		isValid, errs := cfg.IsValid()
		if isValid {
			t.Fatal("UIConfig.IsValid() = true, want false")
		}
		if len(errs) != 1 {
			t.Fatalf("expected 1 error, got %d", len(errs))
		}
		if !errors.Is(errs[0], ErrInvalidUIConfig) {
			t.Errorf("error should wrap ErrInvalidUIConfig, got: %v", errs[0])
		}

		var uiErr *InvalidUIConfigError
		if !errors.As(errs[0], &uiErr) {
			t.Fatalf("error should be *InvalidUIConfigError, got: %T", errs[0])
		}
		if len(uiErr.FieldErrors) != 1 {
			t.Fatalf("expected 1 field error, got %d", len(uiErr.FieldErrors))
		}
		if !errors.Is(uiErr.FieldErrors[0], ErrInvalidColorScheme) {
			t.Errorf("field error should wrap ErrInvalidColorScheme, got: %v", uiErr.FieldErrors[0])
		}
	})
}

func TestWatchConfig_IsValid(t *testing.T) {
	t.Parallel()

	t.Run("zero value", func(t *testing.T) {
		t.Parallel()
		cfg := WatchConfig{}
		if isValid, errs := cfg.IsValid(); !isValid {
			t.Errorf("WatchConfig.IsValid() = false, want true, errors: %v", errs)
		}
	})

	t.Run("valid debounce and patterns", func(t *testing.T) {
		t.Parallel()
		cfg := WatchConfig{
			Debounce: "250ms",
			Ignore:   []string{"**/*.log", "node_modules/**"},
		}
		if isValid, errs := cfg.IsValid(); !isValid {
			t.Errorf("WatchConfig.IsValid() = false, want true, errors: %v", errs)
		}
	})

	t.Run("invalid debounce", func(t *testing.T) {
		t.Parallel()
		cfg := WatchConfig{Debounce: "soon"}
		isValid, errs := cfg.IsValid()
		if isValid {
			t.Fatal("WatchConfig.IsValid() = true, want false")
		}
		if !errors.Is(errs[0], ErrInvalidWatchConfig) {
			t.Errorf("error should wrap ErrInvalidWatchConfig, got: %v", errs[0])
		}

		var watchErr *InvalidWatchConfigError
		if !errors.As(errs[0], &watchErr) {
			t.Fatalf("error should be *InvalidWatchConfigError, got: %T", errs[0])
		}
		if !errors.Is(watchErr.FieldErrors[0], ErrInvalidDebounceInterval) {
			t.Errorf("field error should wrap ErrInvalidDebounceInterval, got: %v", watchErr.FieldErrors[0])
		}
	})

	t.Run("invalid ignore pattern", func(t *testing.T) {
		t.Parallel()
		cfg := WatchConfig{Ignore: []string{"["}}
		isValid, errs := cfg.IsValid()
		if isValid {
			t.Fatal("WatchConfig.IsValid() = true, want false")
		}

		var watchErr *InvalidWatchConfigError
		if !errors.As(errs[0], &watchErr) {
			t.Fatalf("error should be *InvalidWatchConfigError, got: %T", errs[0])
		}
		if len(watchErr.FieldErrors) != 1 {
			t.Fatalf("expected 1 field error, got %d", len(watchErr.FieldErrors))
		}
		if !errors.Is(watchErr.FieldErrors[0], ErrInvalidIgnorePattern) {
			t.Errorf("field error should wrap ErrInvalidIgnorePattern, got: %v", watchErr.FieldErrors[0])
		}
	})

	t.Run("collects every bad pattern", func(t *testing.T) {
		t.Parallel()
		cfg := WatchConfig{Ignore: []string{"[", "valid/**", "[a-"}}
		isValid, errs := cfg.IsValid()
		if isValid {
			t.Fatal("WatchConfig.IsValid() = true, want false")
		}

		var watchErr *InvalidWatchConfigError
		if !errors.As(errs[0], &watchErr) {
			t.Fatalf("error should be *InvalidWatchConfigError, got: %T", errs[0])
		}
		if len(watchErr.FieldErrors) != 2 {
			t.Errorf("expected 2 field errors, got %d: %v", len(watchErr.FieldErrors), watchErr.FieldErrors)
		}
	})
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		if isValid, errs := cfg.IsValid(); !isValid {
			t.Errorf("DefaultConfig().IsValid() = false, want true, errors: %v", errs)
		}
	})

	t.Run("fully specified", func(t *testing.T) {
		t.Parallel()
		cfg := Config{
			Shell:     "zsh",
			LogLevel:  LogLevelDebug,
			AssumeYes: true,
			UI:        UIConfig{ColorScheme: ColorSchemeDark, Verbose: true},
			Watch:     WatchConfig{Debounce: "1s", Ignore: []string{"dist/**"}},
		}
		if isValid, errs := cfg.IsValid(); !isValid {
			t.Errorf("Config.IsValid() = false, want true, errors: %v", errs)
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.LogLevel = "verbose"
		isValid, errs := cfg.IsValid()
		if isValid {
			t.Fatal("Config.IsValid() = true, want false")
		}
		if !errors.Is(errs[0], ErrInvalidConfig) {
			t.Errorf("error should wrap ErrInvalidConfig, got: %v", errs[0])
		}

		var cfgErr *InvalidConfigError
		if !errors.As(errs[0], &cfgErr) {
			t.Fatalf("error should be *InvalidConfigError, got: %T", errs[0])
		}
		if len(cfgErr.FieldErrors) != 1 {
			t.Fatalf("expected 1 field error, got %d", len(cfgErr.FieldErrors))
		}
		if !errors.Is(cfgErr.FieldErrors[0], ErrInvalidLogLevel) {
			t.Errorf("field error should wrap ErrInvalidLogLevel, got: %v", cfgErr.FieldErrors[0])
		}
	})

	t.Run("collects errors across components", func(t *testing.T) {
		t.Parallel()
		cfg := Config{
			Shell:    "   ",
			LogLevel: LogLevelInfo,
			UI:       UIConfig{ColorScheme: "neon"},
			Watch:    WatchConfig{Debounce: "500ms"},
		}
		isValid, errs := cfg.IsValid()
		if isValid {
			t.Fatal("Config.IsValid() = true, want false")
		}

		var cfgErr *InvalidConfigError
		if !errors.As(errs[0], &cfgErr) {
			t.Fatalf("error should be *InvalidConfigError, got: %T", errs[0])
		}
		if len(cfgErr.FieldErrors) != 2 {
			t.Fatalf("expected 2 field errors, got %d: %v", len(cfgErr.FieldErrors), cfgErr.FieldErrors)
		}
		if !errors.Is(cfgErr.FieldErrors[0], ErrInvalidShellName) {
			t.Errorf("first field error should wrap ErrInvalidShellName, got: %v", cfgErr.FieldErrors[0])
		}
		if !errors.Is(cfgErr.FieldErrors[1], ErrInvalidUIConfig) {
			t.Errorf("second field error should wrap ErrInvalidUIConfig, got: %v", cfgErr.FieldErrors[1])
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Shell != "" {
		t.Errorf("DefaultConfig().Shell = %q, want empty (platform default)", cfg.Shell)
	}
	if cfg.LogLevel != LogLevelInfo {
		t.Errorf("DefaultConfig().LogLevel = %q, want %q", cfg.LogLevel, LogLevelInfo)
	}
	if cfg.AssumeYes {
		t.Error("DefaultConfig().AssumeYes = true, want false")
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("DefaultConfig().UI.ColorScheme = %q, want %q", cfg.UI.ColorScheme, ColorSchemeAuto)
	}
	if cfg.UI.Verbose {
		t.Error("DefaultConfig().UI.Verbose = true, want false")
	}
	if cfg.Watch.Debounce != "500ms" {
		t.Errorf("DefaultConfig().Watch.Debounce = %q, want %q", cfg.Watch.Debounce, "500ms")
	}
	if cfg.Watch.Ignore == nil {
		t.Error("DefaultConfig().Watch.Ignore = nil, want empty slice")
	}

	if _, err := cfg.Watch.Debounce.Duration(); err != nil {
		t.Errorf("default debounce should parse: %v", err)
	}
}
