// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// LogLevelDebug enables debug logging.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default logging level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn limits logging to warnings and errors.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError limits logging to errors.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidShellName is returned when a ShellName value is whitespace-only.
	ErrInvalidShellName = errors.New("invalid shell name")
	// ErrInvalidDebounceInterval is returned when a DebounceInterval value does not
	// parse as a non-negative Go duration.
	ErrInvalidDebounceInterval = errors.New("invalid debounce interval")
	// ErrInvalidIgnorePattern is returned when a watch ignore pattern is not a
	// valid doublestar glob.
	ErrInvalidIgnorePattern = errors.New("invalid ignore pattern")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidWatchConfig is the sentinel error wrapped by InvalidWatchConfigError.
	ErrInvalidWatchConfig = errors.New("invalid watch config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// LogLevel specifies the minimum severity of log lines the tool emits.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// ShellName names the shell program used for commands without a shell
	// directive. The zero value ("") selects the platform default; the value
	// "builtin" selects the embedded interpreter.
	ShellName string

	// InvalidShellNameError is returned when a ShellName value is non-empty
	// but whitespace-only. It wraps ErrInvalidShellName for errors.Is().
	InvalidShellNameError struct {
		Value ShellName
	}

	// DebounceInterval is a Go duration literal (e.g. "500ms") that sets how
	// long watch mode waits after the last change before re-running.
	// The zero value ("") selects the built-in default.
	DebounceInterval string

	// InvalidDebounceIntervalError is returned when a DebounceInterval value
	// does not parse as a non-negative Go duration.
	InvalidDebounceIntervalError struct {
		Value DebounceInterval
	}

	// InvalidIgnorePatternError is returned when a watch ignore pattern fails
	// doublestar validation. It wraps ErrInvalidIgnorePattern for errors.Is().
	InvalidIgnorePatternError struct {
		Value string
	}

	// InvalidUIConfigError is returned when a UIConfig has invalid fields.
	// It wraps ErrInvalidUIConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidWatchConfigError is returned when a WatchConfig has invalid fields.
	// It wraps ErrInvalidWatchConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the tool configuration.
	Config struct {
		// Shell is the default shell for commands without a shell directive.
		Shell ShellName `json:"shell" mapstructure:"shell"`
		// LogLevel sets the minimum log severity.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// AssumeYes answers confirmation prompts affirmatively without asking.
		AssumeYes bool `json:"assume_yes" mapstructure:"assume_yes"`
		// UI configures terminal output.
		UI UIConfig `json:"ui" mapstructure:"ui"`
		// Watch configures watch mode.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		// ColorScheme sets the color scheme.
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		// Debounce is the quiet period after the last change before re-running.
		Debounce DebounceInterval `json:"debounce" mapstructure:"debounce"`
		// Ignore lists doublestar patterns excluded from watching, in
		// addition to the built-in ignore set.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
	}
)

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels,
// and a list of validation errors if it is not.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the ShellName.
func (s ShellName) String() string { return string(s) }

// IsValid returns whether the ShellName is valid.
// The zero value ("") is valid and selects the platform default.
// Non-zero values must not be whitespace-only.
func (s ShellName) IsValid() (bool, []error) {
	if s == "" {
		return true, nil
	}
	if strings.TrimSpace(string(s)) == "" {
		return false, []error{&InvalidShellNameError{Value: s}}
	}
	return true, nil
}

// Error implements the error interface for InvalidShellNameError.
func (e *InvalidShellNameError) Error() string {
	return fmt.Sprintf("invalid shell name %q: non-empty value must not be whitespace-only", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidShellNameError) Unwrap() error { return ErrInvalidShellName }

// String returns the string representation of the DebounceInterval.
func (d DebounceInterval) String() string { return string(d) }

// Duration converts the interval to a time.Duration. The zero value ("")
// yields 0, which callers treat as "use the built-in default".
func (d DebounceInterval) Duration() (time.Duration, error) {
	if d == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(string(d))
	if err != nil || dur < 0 {
		return 0, &InvalidDebounceIntervalError{Value: d}
	}
	return dur, nil
}

// IsValid returns whether the DebounceInterval parses as a non-negative
// Go duration. The zero value ("") is valid.
func (d DebounceInterval) IsValid() (bool, []error) {
	if _, err := d.Duration(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Error implements the error interface for InvalidDebounceIntervalError.
func (e *InvalidDebounceIntervalError) Error() string {
	return fmt.Sprintf("invalid debounce interval %q: must be a non-negative Go duration such as \"500ms\"", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidDebounceIntervalError) Unwrap() error { return ErrInvalidDebounceInterval }

// Error implements the error interface for InvalidIgnorePatternError.
func (e *InvalidIgnorePatternError) Error() string {
	return fmt.Sprintf("invalid ignore pattern %q", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidIgnorePatternError) Unwrap() error { return ErrInvalidIgnorePattern }

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); bool fields need no validation.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig for errors.Is() compatibility.
func (e *InvalidUIConfigError) Unwrap() error { return ErrInvalidUIConfig }

// IsValid returns whether the WatchConfig has valid fields.
// It delegates to Debounce.IsValid() and validates every ignore pattern.
func (c WatchConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Debounce.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, pattern := range c.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, &InvalidIgnorePatternError{Value: pattern})
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidWatchConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidWatchConfigError.
func (e *InvalidWatchConfigError) Error() string {
	return fmt.Sprintf("invalid watch config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidWatchConfig for errors.Is() compatibility.
func (e *InvalidWatchConfigError) Unwrap() error { return ErrInvalidWatchConfig }

// IsValid returns whether the Config has valid fields.
// It delegates to Shell.IsValid(), LogLevel.IsValid(), UI.IsValid(),
// and Watch.IsValid(). AssumeYes needs no validation.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Shell.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Watch.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Shell:     "", // platform default
		LogLevel:  LogLevelInfo,
		AssumeYes: false,
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
			Ignore:   []string{},
		},
	}
}
