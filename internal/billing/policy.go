package billing

import (
	"fmt"
	"strings"
)

// OpenSessionPolicy decides the last billable date of a session that never
// logged out.
type OpenSessionPolicy int

const (
	// ChargeThroughLoginDay bills an open session for its login date only.
	ChargeThroughLoginDay OpenSessionPolicy = iota
	// ChargeThroughNow bills an open session through the current date.
	ChargeThroughNow
)

// String returns the configuration name of the policy.
func (p OpenSessionPolicy) String() string {
	switch p {
	case ChargeThroughLoginDay:
		return "through-login-day"
	case ChargeThroughNow:
		return "through-now"
	default:
		return fmt.Sprintf("OpenSessionPolicy(%d)", int(p))
	}
}

// ParseOpenSessionPolicy parses a configuration value such as "through-now".
func ParseOpenSessionPolicy(s string) (OpenSessionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "through-login-day", "login-day", "":
		return ChargeThroughLoginDay, nil
	case "through-now", "now":
		return ChargeThroughNow, nil
	default:
		return 0, fmt.Errorf("invalid open session policy: %q (must be through-login-day or through-now)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p OpenSessionPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
