package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 5000
	MaxCategoryLength    = 64
	MaxAmount            = "1000000000" // 1 billion
	MinAmount            = "0.01"

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Condition describes the physical state of a listed item.
type Condition string

const (
	ConditionNew     Condition = "NEW"
	ConditionLikeNew Condition = "LIKE_NEW"
	ConditionGood    Condition = "GOOD"
	ConditionFair    Condition = "FAIR"
	ConditionPoor    Condition = "POOR"
)

var validConditions = map[Condition]bool{
	ConditionNew:     true,
	ConditionLikeNew: true,
	ConditionGood:    true,
	ConditionFair:    true,
	ConditionPoor:    true,
}

// ParseCondition normalizes user input such as "like new" to a Condition.
func ParseCondition(s string) (Condition, error) {
	c := Condition(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "_")))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// Validate checks c is one of the known conditions.
func (c Condition) Validate() error {
	if !validConditions[c] {
		return fmt.Errorf("%w: unknown condition %q", ErrInvalidInput, c)
	}
	return nil
}

// ValidateListing checks the free-text listing fields.
func ValidateListing(title, description, category string) error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"title", title, MaxTitleLength},
		{"description", description, MaxDescriptionLength},
		{"category", category, MaxCategoryLength},
	}

	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, f.name)
		}
		if len(v) > f.max {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidInput, f.name, f.max)
		}
	}

	return nil
}

// ValidateAmount validates a price, bid or deposit amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if amount.LessThan(decimal.RequireFromString(MinAmount)) {
		return fmt.Errorf("%w: minimum amount is %s", ErrInvalidInput, MinAmount)
	}

	if amount.GreaterThan(decimal.RequireFromString(MaxAmount)) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidInput, MaxAmount)
	}

	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: at most 2 decimal places", ErrInvalidInput)
	}

	return nil
}

// ValidatePagination clamps paging parameters.
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
