package glare

import (
	"fmt"
	"strings"
)

// AlertLevel is the ordered glare severity: none < info < caution < warning < danger.
type AlertLevel int

const (
	AlertNone AlertLevel = iota
	AlertInfo
	AlertCaution
	AlertWarning
	AlertDanger
)

var alertLevelNames = [...]string{
	AlertNone:    "none",
	AlertInfo:    "info",
	AlertCaution: "caution",
	AlertWarning: "warning",
	AlertDanger:  "danger",
}

// String returns the lower-case level name used on the wire.
func (l AlertLevel) String() string {
	if l < AlertNone || l > AlertDanger {
		return fmt.Sprintf("AlertLevel(%d)", int(l))
	}
	return alertLevelNames[l]
}

// MarshalText implements encoding.TextMarshaler.
func (l AlertLevel) MarshalText() ([]byte, error) {
	if l < AlertNone || l > AlertDanger {
		return nil, fmt.Errorf("invalid alert level %d", int(l))
	}
	return []byte(alertLevelNames[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *AlertLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseAlertLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseAlertLevel parses a level name, ignoring case and surrounding space.
func ParseAlertLevel(s string) (AlertLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range alertLevelNames {
		if n == name {
			return AlertLevel(i), nil
		}
	}
	return AlertNone, fmt.Errorf("unknown alert level %q", s)
}

// Classify maps a composite score to its alert level, checking the highest
// threshold first. Every input, NaN included, gets exactly one level.
func (c ScoringConfig) Classify(composite float64) AlertLevel {
	switch {
	case composite >= c.Alerts.Danger:
		return AlertDanger
	case composite >= c.Alerts.Warning:
		return AlertWarning
	case composite >= c.Alerts.Caution:
		return AlertCaution
	case composite >= c.Alerts.Info:
		return AlertInfo
	default:
		return AlertNone
	}
}

// HasGlare reports whether the composite is strictly above the glare threshold.
func (c ScoringConfig) HasGlare(composite float64) bool {
	return composite > c.HasGlareThreshold
}
