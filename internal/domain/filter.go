package domain

import (
	"strings"
	"time"
)

// CategoryAll disables the category filter when browsing.
const CategoryAll = "all"

// AuctionFilter narrows the browse listing. Only ACTIVE auctions whose end
// time is after Now are ever returned.
type AuctionFilter struct {
	Category string
	Search   string
	Now      time.Time
	Limit    int
	Offset   int
}

// Matches reports whether a satisfies the filter.
func (f AuctionFilter) Matches(a *Auction) bool {
	if !a.IsOpen(f.Now) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, CategoryAll) && !strings.EqualFold(a.Category, f.Category) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return strings.Contains(strings.ToLower(a.Title), q) ||
			strings.Contains(strings.ToLower(a.Description), q)
	}
	return true
}
