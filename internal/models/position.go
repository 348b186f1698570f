package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validation bounds for user-entered position fields
const (
	MaxShares     = 1_000_000_000
	MaxAvgPrice   = 1_000_000
	MaxNameLength = 100
)

var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// Position represents a stock holding owned by a user.
// Symbol and ID are immutable after creation; shares, average price
// and name may be edited.
type Position struct {
	ID        int             `json:"id"`
	UserID    string          `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Shares    decimal.Decimal `json:"shares"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NormalizeSymbol trims and uppercases a user-entered ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NewPosition validates user input and constructs a Position.
// Malformed input is rejected here and never reaches the analytics engine.
func NewPosition(userID, symbol string, shares, avgPrice decimal.Decimal, name string) (*Position, error) {
	symbol = NormalizeSymbol(symbol)
	if !symbolPattern.MatchString(symbol) {
		return nil, fmt.Errorf("invalid symbol %q: must be 1-5 uppercase letters", symbol)
	}
	if err := validateShares(shares); err != nil {
		return nil, err
	}
	if err := validateAvgPrice(avgPrice); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = symbol
	}
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}

	return &Position{
		UserID:   userID,
		Symbol:   symbol,
		Shares:   shares,
		AvgPrice: avgPrice,
		Name:     name,
	}, nil
}

// ApplyUpdate validates and applies an edit to the mutable fields.
func (p *Position) ApplyUpdate(shares, avgPrice decimal.Decimal, name string) error {
	if err := validateShares(shares); err != nil {
		return err
	}
	if err := validateAvgPrice(avgPrice); err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = p.Symbol
	}
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}

	p.Shares = shares
	p.AvgPrice = avgPrice
	p.Name = name
	return nil
}

// HasLegacyName reports whether the position still carries its symbol as
// display name and needs a company-name lookup.
func (p *Position) HasLegacyName() bool {
	return p.Name == "" || p.Name == p.Symbol
}

func validateShares(shares decimal.Decimal) error {
	if shares.LessThanOrEqual(decimal.Zero) || shares.GreaterThan(decimal.NewFromInt(MaxShares)) {
		return fmt.Errorf("invalid shares %s: must be a positive number", shares)
	}
	return nil
}

func validateAvgPrice(avgPrice decimal.Decimal) error {
	if avgPrice.LessThanOrEqual(decimal.Zero) || avgPrice.GreaterThan(decimal.NewFromInt(MaxAvgPrice)) {
		return fmt.Errorf("invalid average price %s: must be a positive number", avgPrice)
	}
	return nil
}
