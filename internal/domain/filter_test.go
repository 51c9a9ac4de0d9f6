package domain

import (
	"testing"
	"time"
)

func TestAuctionFilter_Matches(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	open := &Auction{
		Title:       "Mountain Bike",
		Description: "Aluminium frame",
		Category:    "sports",
		Status:      AuctionStatusActive,
		EndTime:     now.Add(time.Hour),
	}

	tests := []struct {
		name   string
		filter AuctionFilter
		a      *Auction
		want   bool
	}{
		{"no filter", AuctionFilter{Now: now}, open, true},
		{"category all", AuctionFilter{Now: now, Category: "all"}, open, true},
		{"matching category", AuctionFilter{Now: now, Category: "Sports"}, open, true},
		{"other category", AuctionFilter{Now: now, Category: "books"}, open, false},
		{"search title", AuctionFilter{Now: now, Search: "bike"}, open, true},
		{"search description", AuctionFilter{Now: now, Search: "FRAME"}, open, true},
		{"search miss", AuctionFilter{Now: now, Search: "guitar"}, open, false},
		{"deadline passed", AuctionFilter{Now: now.Add(2 * time.Hour)}, open, false},
		{"ended", AuctionFilter{Now: now}, &Auction{Status: AuctionStatusEnded, EndTime: now.Add(time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.a); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
