package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAuctionRepositoryCreate(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := NewAuctionRepository(pool)

	pool.ExpectExec("INSERT INTO auctions").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	auction := &domain.Auction{
		ID:            "a1",
		SellerID:      "seller",
		Title:         "Lamp",
		Description:   "Brass desk lamp",
		Category:      "home",
		Condition:     domain.ConditionGood,
		Media:         domain.ImageMedia("img-1"),
		StartingPrice: decimal.NewFromInt(10),
		CurrentPrice:  decimal.NewFromInt(10),
		EndTime:       testNow.Add(time.Hour),
		Status:        domain.AuctionStatusActive,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}

	if err := repo.Create(context.Background(), tx, auction); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	assertExpectations(t, pool)
}

func TestAuctionRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := NewAuctionRepository(pool)

	pool.ExpectQuery("FROM auctions WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrAuctionNotFound) {
		t.Fatalf("expected ErrAuctionNotFound, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestAuctionRepositoryGetByIDForUpdateLocksRow(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := NewAuctionRepository(pool)

	pool.ExpectQuery("WHERE id = \\$1 FOR UPDATE").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.GetByIDForUpdate(context.Background(), tx, "missing")
	if !errors.Is(err, domain.ErrAuctionNotFound) {
		t.Fatalf("expected ErrAuctionNotFound, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestAuctionRepositoryUpdate(t *testing.T) {
	t.Run("bumps version", func(t *testing.T) {
		pool := newMockPool(t)
		tx := beginMockTx(t, pool)
		repo := NewAuctionRepository(pool)

		pool.ExpectQuery("UPDATE auctions").
			WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(4)))

		auction := &domain.Auction{ID: "a1", Status: domain.AuctionStatusEnded, Version: 3, UpdatedAt: testNow}
		if err := repo.Update(context.Background(), tx, auction); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if auction.Version != 4 {
			t.Fatalf("expected version 4, got %d", auction.Version)
		}

		assertExpectations(t, pool)
	})

	t.Run("missing auction", func(t *testing.T) {
		pool := newMockPool(t)
		tx := beginMockTx(t, pool)
		repo := NewAuctionRepository(pool)

		pool.ExpectQuery("UPDATE auctions").
			WillReturnRows(pgxmock.NewRows([]string{"version"}))

		err := repo.Update(context.Background(), tx, &domain.Auction{ID: "gone"})
		if !errors.Is(err, domain.ErrAuctionNotFound) {
			t.Fatalf("expected ErrAuctionNotFound, got %v", err)
		}

		assertExpectations(t, pool)
	})
}

func TestAuctionRepositoryListExpiredIDs(t *testing.T) {
	pool := newMockPool(t)
	repo := NewAuctionRepository(pool)

	pool.ExpectQuery("end_time <= \\$1").
		WithArgs(pgxmock.AnyArg(), 50).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("a1").AddRow("a2"))

	ids, err := repo.ListExpiredIDs(context.Background(), testNow, 50)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a1" || ids[1] != "a2" {
		t.Fatalf("unexpected ids %v", ids)
	}

	assertExpectations(t, pool)
}

func TestActiveAuctionsQuery(t *testing.T) {
	tests := []struct {
		name      string
		filter    domain.AuctionFilter
		wantParts []string
		wantArgs  int
	}{
		{
			name:      "no filters",
			filter:    domain.AuctionFilter{Now: testNow, Limit: 20},
			wantParts: []string{"end_time > $1", "LIMIT $2 OFFSET $3"},
			wantArgs:  3,
		},
		{
			name:      "all category is ignored",
			filter:    domain.AuctionFilter{Category: "ALL", Now: testNow, Limit: 20},
			wantParts: []string{"LIMIT $2 OFFSET $3"},
			wantArgs:  3,
		},
		{
			name:      "category and search",
			filter:    domain.AuctionFilter{Category: "Books", Search: "rare", Now: testNow, Limit: 20},
			wantParts: []string{"lower(category) = lower($2)", "title ILIKE $3 OR description ILIKE $3", "LIMIT $4 OFFSET $5"},
			wantArgs:  5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := activeAuctionsQuery(tt.filter)
			for _, part := range tt.wantParts {
				if !strings.Contains(query, part) {
					t.Errorf("query %q missing %q", query, part)
				}
			}
			if len(args) != tt.wantArgs {
				t.Errorf("expected %d args, got %d", tt.wantArgs, len(args))
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("unexpected escape %q", got)
	}
}

func TestBidRepositoryCreate(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := NewBidRepository(pool)

	pool.ExpectExec("INSERT INTO bids").
		WithArgs("b1", "a1", "u1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	bid := &domain.Bid{
		ID:        "b1",
		AuctionID: "a1",
		UserID:    "u1",
		Amount:    decimal.NewFromInt(60),
		Reserved:  decimal.NewFromInt(30),
		CreatedAt: testNow,
	}
	if err := repo.Create(context.Background(), tx, bid); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	assertExpectations(t, pool)
}

func TestWalletRepositoryCreateIgnoresExisting(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := NewWalletRepository(pool)

	pool.ExpectExec("ON CONFLICT \\(user_id\\) DO NOTHING").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	if err := repo.Create(context.Background(), tx, domain.NewWallet("u1", testNow)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	assertExpectations(t, pool)
}

func TestWalletRepositoryGetByUserIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := NewWalletRepository(pool)

	pool.ExpectQuery("FROM wallets WHERE user_id").
		WithArgs("nobody").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}))

	_, err := repo.GetByUserID(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestWalletRepositoryUpdateBalance(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{"updated", 1, nil},
		{"missing wallet", 0, domain.ErrWalletNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := newMockPool(t)
			tx := beginMockTx(t, pool)
			repo := NewWalletRepository(pool)

			pool.ExpectExec("UPDATE wallets SET balance").
				WithArgs("u1", pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.rows))

			err := repo.UpdateBalance(context.Background(), tx, "u1", decimal.NewFromInt(40), testNow)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			assertExpectations(t, pool)
		})
	}
}

func TestWalletTransactionRepositoryCreate(t *testing.T) {
	bidID := "b1"
	auctionID := "a1"
	refund := &domain.WalletTransaction{
		ID:           "t1",
		UserID:       "u1",
		Kind:         domain.TransactionRefund,
		Amount:       decimal.NewFromInt(25),
		BalanceAfter: decimal.NewFromInt(100),
		Description:  "refund",
		AuctionID:    &auctionID,
		BidID:        &bidID,
		CreatedAt:    testNow,
	}

	t.Run("appends", func(t *testing.T) {
		pool := newMockPool(t)
		tx := beginMockTx(t, pool)
		repo := NewWalletTransactionRepository(pool)

		pool.ExpectExec("INSERT INTO wallet_transactions").WillReturnResult(pgxmock.NewResult("INSERT", 1))

		if err := repo.Create(context.Background(), tx, refund); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		assertExpectations(t, pool)
	})

	t.Run("second refund for a bid", func(t *testing.T) {
		pool := newMockPool(t)
		tx := beginMockTx(t, pool)
		repo := NewWalletTransactionRepository(pool)

		pool.ExpectExec("INSERT INTO wallet_transactions").
			WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: refundPerBidIndex})

		err := repo.Create(context.Background(), tx, refund)
		if !errors.Is(err, domain.ErrAlreadyRefunded) {
			t.Fatalf("expected ErrAlreadyRefunded, got %v", err)
		}
		assertExpectations(t, pool)
	})

	t.Run("other unique violation", func(t *testing.T) {
		pool := newMockPool(t)
		tx := beginMockTx(t, pool)
		repo := NewWalletTransactionRepository(pool)

		pool.ExpectExec("INSERT INTO wallet_transactions").
			WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "wallet_transactions_pkey"})

		err := repo.Create(context.Background(), tx, refund)
		if err == nil || errors.Is(err, domain.ErrAlreadyRefunded) {
			t.Fatalf("expected raw storage error, got %v", err)
		}
		assertExpectations(t, pool)
	})
}

func TestOutboxRepositoryCreate(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := NewOutboxRepository(pool)

	pool.ExpectExec("INSERT INTO outbox_events").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	event := &domain.OutboxEvent{
		ID:            "e1",
		AggregateID:   "a1",
		AggregateType: domain.AggregateTypeAuction,
		EventType:     domain.EventTypeBidPlaced,
		Payload:       map[string]any{"amount": "60.00"},
		CreatedAt:     testNow,
	}
	if err := repo.Create(context.Background(), tx, event); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	assertExpectations(t, pool)
}

func TestOutboxRepositoryMarkAndDeletePublished(t *testing.T) {
	pool := newMockPool(t)
	repo := NewOutboxRepository(pool)

	pool.ExpectExec("UPDATE outbox_events SET published = TRUE").
		WithArgs("e1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec("DELETE FROM outbox_events").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	if err := repo.MarkPublished(context.Background(), "e1", testNow); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := repo.DeletePublished(context.Background(), testNow.Add(-time.Hour)); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	assertExpectations(t, pool)
}

func TestNumericConversions(t *testing.T) {
	for _, s := range []string{"0", "12.50", "1000000000.00", "0.01"} {
		d := decimal.RequireFromString(s)
		if got := numericToDecimal(decimalToNumeric(d)); !got.Equal(d) {
			t.Errorf("round trip of %s gave %s", s, got)
		}
	}
}
