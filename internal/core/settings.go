package core

import (
	"strings"

	"github.com/Rhymond/go-money"

	"fintrack/internal/errs"
)

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"

	DefaultCurrency = "USD"
	DefaultTheme    = ThemeDark
)

// Theme is presentation-only state persisted alongside the ledger.
type Theme string

// Settings are the display preferences stored with the ledger.
type Settings struct {
	Currency string `json:"currency"`
	Theme    Theme  `json:"theme"`
}

// DefaultSettings returns USD and the dark theme.
func DefaultSettings() Settings {
	return Settings{Currency: DefaultCurrency, Theme: DefaultTheme}
}

func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeDark:
		return ThemeDark, nil
	case ThemeLight:
		return ThemeLight, nil
	default:
		return "", errs.NewValidationError("invalid theme %q: must be dark or light", s)
	}
}

// ParseCurrency normalizes an ISO 4217 code and checks it is known.
// The currency is a display label; amounts are never converted.
func ParseCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", errs.NewValidationError("currency code is required")
	}
	if money.GetCurrency(code) == nil {
		return "", errs.NewValidationError("unknown currency code %q", code)
	}
	return code, nil
}

// FormatAmount renders a with the symbol, separators and minor units of the
// currency. Unknown codes fall back to two decimals.
func FormatAmount(a Amount, currency string) string {
	c := money.GetCurrency(strings.ToUpper(strings.TrimSpace(currency)))
	if c == nil {
		return a.StringFixed(2)
	}
	minor := a.Decimal().Shift(int32(c.Fraction)).Round(0).IntPart()
	return c.Formatter().Format(minor)
}
