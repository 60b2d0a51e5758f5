package core

import (
	"strings"
	"time"

	"fintrack/internal/errs"
)

const (
	IconWallet Icon = "wallet"
	IconCard   Icon = "card"
	IconPiggy  Icon = "piggy"
	IconCash   Icon = "cash"
	IconBank   Icon = "bank"
)

// DateLayout is the wire layout for transaction dates (ISO-8601, UTC, milliseconds).
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

type (
	// Icon is one of a closed set of wallet icon tags.
	Icon string

	Wallet struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Icon    string `json:"icon"` // raw tag, resolved with IconKind
		Balance Amount `json:"balance"`
		Color   Color  `json:"color"`
	}

	Transaction struct {
		ID          string    `json:"id"`
		WalletID    string    `json:"walletId"`
		Amount      Amount    `json:"amount"`
		Description string    `json:"description"`
		Date        Timestamp `json:"date"`
	}

	// Timestamp is a creation instant encoded as an ISO-8601 string.
	Timestamp struct {
		time.Time
	}
)

// Icons lists the known icon tags in display order.
func Icons() []Icon {
	return []Icon{IconWallet, IconCard, IconPiggy, IconCash, IconBank}
}

// ParseIcon resolves a tag. Unknown tags fall back to IconWallet; this is
// never an error so that data written by a newer icon set still loads.
func ParseIcon(tag string) Icon {
	switch Icon(strings.ToLower(strings.TrimSpace(tag))) {
	case IconCard:
		return IconCard
	case IconPiggy:
		return IconPiggy
	case IconCash:
		return IconCash
	case IconBank:
		return IconBank
	default:
		return IconWallet
	}
}

// IconKind returns the resolved icon of the wallet.
func (w Wallet) IconKind() Icon { return ParseIcon(w.Icon) }

// ValidateWalletName trims the name and rejects it when empty.
func ValidateWalletName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.NewValidationError("wallet name must not be empty")
	}
	return name, nil
}

// NewTimestamp truncates t to milliseconds in UTC, the precision of the wire format.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

// ParseTimestamp accepts RFC 3339 with or without fractional seconds.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return Timestamp{}, errs.NewValidationError("invalid date %q: want ISO-8601", s)
	}
	return NewTimestamp(t), nil
}

func (t Timestamp) String() string { return t.UTC().Format(DateLayout) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errs.NewValidationError("invalid date %s: want an ISO-8601 string", s)
	}
	parsed, err := ParseTimestamp(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
