package schema

import (
	"net/url"
	"strings"
)

// NormalizeNavInput turns address-bar input into a navigable URL. Input with
// an explicit scheme passes through, bare hosts get https, and anything else
// becomes a search query against searchURL (which must contain %s).
func NormalizeNavInput(input, searchURL string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrProtocol
	}
	if strings.Contains(trimmed, "://") || strings.HasPrefix(trimmed, "about:") {
		return trimmed, nil
	}
	if !strings.ContainsAny(trimmed, " \t") && strings.Contains(trimmed, ".") {
		return "https://" + trimmed, nil
	}
	if searchURL == "" {
		return "", ErrProtocol
	}
	return strings.Replace(searchURL, "%s", url.QueryEscape(trimmed), 1), nil
}

// ValidateFlag reports whether flag names a known tab attribute.
func ValidateFlag(flag Flag) error {
	switch flag {
	case FlagPinned, FlagMuted, FlagExpanded:
		return nil
	default:
		return ErrProtocol
	}
}

// ValidateSignal reports whether signal names a known activity signal.
func ValidateSignal(signal Signal) error {
	switch signal {
	case SignalFocusGained, SignalFocusLost, SignalVisibilityShown,
		SignalVisibilityHidden, SignalInputActivity:
		return nil
	default:
		return ErrProtocol
	}
}

// ValidatePressure reports whether level names a known pressure level.
func ValidatePressure(level Pressure) error {
	switch level {
	case PressureLow, PressureModerate, PressureSevere:
		return nil
	default:
		return ErrProtocol
	}
}
