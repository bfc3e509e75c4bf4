package forecast

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/stockintel/internal/inventory"
)

// Method is a forecasting method.
type Method string

const (
	MethodSMA  Method = "sma"  // simple moving average
	MethodSES  Method = "ses"  // simple exponential smoothing
	MethodHolt Method = "holt" // Holt's linear trend
)

var methodAliases = map[string]Method{
	"sma":                          MethodSMA,
	"moving_average":               MethodSMA,
	"simple_moving_average":        MethodSMA,
	"ses":                          MethodSES,
	"exponential_smoothing":        MethodSES,
	"simple_exponential_smoothing": MethodSES,
	"holt":                         MethodHolt,
	"holt's":                       MethodHolt,
	"holts":                        MethodHolt,
	"holt_linear":                  MethodHolt,
}

// ParseMethod resolves a method name case-insensitively.
func ParseMethod(name string) (Method, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "_")
	if m, ok := methodAliases[key]; ok {
		return m, nil
	}
	return "", fmt.Errorf("unknown forecast method %q: %w", name, inventory.ErrInvalidArgument)
}

// Label is the display name of the method.
func (m Method) Label() string {
	switch m {
	case MethodSMA:
		return "SMA"
	case MethodSES:
		return "SES"
	case MethodHolt:
		return "Holt's"
	}
	return string(m)
}

// Params are the tuning parameters of a method. Only the fields relevant to
// the method are read.
type Params struct {
	Window int     `json:"window,omitempty"` // SMA
	Alpha  float64 `json:"alpha,omitempty"`  // SES, Holt
	Beta   float64 `json:"beta,omitempty"`   // Holt
}

// MethodSpec is a method plus its parameters.
type MethodSpec struct {
	Method Method `json:"method"`
	Params Params `json:"params"`
}

// Validate checks the parameters the method needs.
func (s MethodSpec) Validate() error {
	switch s.Method {
	case MethodSMA:
		if s.Params.Window < 1 {
			return fmt.Errorf("sma window must be >= 1, got %d: %w", s.Params.Window, inventory.ErrInvalidArgument)
		}
	case MethodSES:
		if err := validateSmoothing("alpha", s.Params.Alpha); err != nil {
			return err
		}
	case MethodHolt:
		if err := validateSmoothing("alpha", s.Params.Alpha); err != nil {
			return err
		}
		if err := validateSmoothing("beta", s.Params.Beta); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown forecast method %q: %w", s.Method, inventory.ErrInvalidArgument)
	}
	return nil
}

func validateSmoothing(name string, v float64) error {
	if v <= 0 || v > 1 {
		return fmt.Errorf("%s must be in (0, 1], got %v: %w", name, v, inventory.ErrInvalidArgument)
	}
	return nil
}

// project fits spec to values and returns the raw (unclamped) forecast for
// the next periods. values must hold at least one point; Holt uses two.
func project(values []float64, periods int, spec MethodSpec) []float64 {
	out := make([]float64, periods)
	switch spec.Method {
	case MethodSMA:
		level := movingAverage(values, spec.Params.Window)
		for i := range out {
			out[i] = level
		}
	case MethodSES:
		level := exponentialLevel(values, spec.Params.Alpha)
		for i := range out {
			out[i] = level
		}
	case MethodHolt:
		level, trend := holtLinear(values, spec.Params.Alpha, spec.Params.Beta)
		for i := range out {
			out[i] = level + float64(i+1)*trend
		}
	}
	return out
}

func movingAverage(values []float64, window int) float64 {
	if window > len(values) {
		window = len(values)
	}
	return inventory.Mean(values[len(values)-window:])
}

func exponentialLevel(values []float64, alpha float64) float64 {
	level := values[0]
	for _, v := range values[1:] {
		level = alpha*v + (1-alpha)*level
	}
	return level
}

// holtLinear initialises the level at the first point and the trend at the
// first difference.
func holtLinear(values []float64, alpha, beta float64) (level, trend float64) {
	level = values[0]
	if len(values) < 2 {
		return level, 0
	}
	trend = values[1] - values[0]
	for _, v := range values[1:] {
		prev := level
		level = alpha*v + (1-alpha)*(level+trend)
		trend = beta*(level-prev) + (1-beta)*trend
	}
	return level, trend
}

func clampNonNegative(values []float64) {
	for i, v := range values {
		if v < 0 {
			values[i] = 0
		}
	}
}
