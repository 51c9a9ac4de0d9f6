package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/goauction/internal/adapter/http/dto"
	"github.com/iho/goauction/internal/infrastructure/auth"
	"github.com/iho/goauction/internal/infrastructure/logger"
	"github.com/iho/goauction/internal/infrastructure/postgres"
)

// globalOptions are the persistent flags shared by API commands.
type globalOptions struct {
	baseURL string
	timeout time.Duration
	user    string
	token   string
}

func (o *globalOptions) client() *apiClient {
	return newAPIClient(o.baseURL, o.timeout, o.user, o.token)
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "auctionctl",
		Short:         "GoAuction CLI tool",
		Long:          `A command line interface for operating the GoAuction API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("AUCTION_URL", "http://localhost:8080"), "Base URL of the GoAuction API")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	root.PersistentFlags().StringVar(&opts.user, "user", os.Getenv("AUCTION_USER"), "Caller user id (development mode)")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("AUCTION_TOKEN"), "Bearer token")

	root.AddCommand(
		auctionsCmd(opts),
		bidCmd(opts),
		settleCmd(opts),
		walletCmd(opts),
		ledgerCmd(opts),
		tokenCmd(),
		migrateCmd(),
	)

	return root
}

func auctionsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auctions",
		Short: "Browse auctions",
	}

	var category, search string
	var limit, offset int

	list := &cobra.Command{
		Use:   "list",
		Short: "List open auctions",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if category != "" {
				q.Set("category", category)
			}
			if search != "" {
				q.Set("search", search)
			}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))

			var resp dto.ListResponse[dto.AuctionResponse]
			if err := opts.client().do(cmd.Context(), "GET", "/api/v1/auctions?"+q.Encode(), nil, "", &resp); err != nil {
				return err
			}

			printAuctions(cmd.OutOrStdout(), resp.Items)
			return nil
		},
	}
	list.Flags().StringVar(&category, "category", "", "Filter by category")
	list.Flags().StringVar(&search, "search", "", "Search title and description")
	list.Flags().IntVar(&limit, "limit", 20, "Page size")
	list.Flags().IntVar(&offset, "offset", 0, "Page offset")

	get := &cobra.Command{
		Use:   "get AUCTION_ID",
		Short: "Show an auction and its bids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.AuctionDetailResponse
			if err := opts.client().do(cmd.Context(), "GET", "/api/v1/auctions/"+url.PathEscape(args[0]), nil, "", &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}

func bidCmd(opts *globalOptions) *cobra.Command {
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "bid AUCTION_ID AMOUNT",
		Short: "Place a bid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}
			if idempotencyKey == "" {
				idempotencyKey = uuid.NewString()
			}

			var resp dto.BidResponse
			path := "/api/v1/auctions/" + url.PathEscape(args[0]) + "/bids"
			if err := opts.client().do(cmd.Context(), "POST", path, dto.PlaceBidRequest{Amount: amount}, idempotencyKey, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key (random when empty)")

	return cmd
}

func settleCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settle AUCTION_ID",
		Short: "Close your auction early and settle it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.SettlementResponse
			path := "/api/v1/auctions/" + url.PathEscape(args[0]) + "/settle"
			if err := opts.client().do(cmd.Context(), "POST", path, nil, uuid.NewString(), &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func walletCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet operations",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show your wallet balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.WalletResponse
			if err := opts.client().do(cmd.Context(), "GET", "/api/v1/me/wallet", nil, "", &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User:    %s\nBalance: %s\n", resp.UserID, resp.Balance.StringFixed(2))
			return nil
		},
	}

	deposit := &cobra.Command{
		Use:   "deposit AMOUNT",
		Short: "Add funds to your wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}

			var resp dto.WalletTransactionResponse
			if err := opts.client().do(cmd.Context(), "POST", "/api/v1/me/wallet/deposits", dto.DepositRequest{Amount: amount}, uuid.NewString(), &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deposited %s, balance %s\n", resp.Amount.StringFixed(2), resp.BalanceAfter.StringFixed(2))
			return nil
		},
	}

	cmd.AddCommand(show, deposit)
	return cmd
}

func ledgerCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistency := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ReconciliationResponse
			if err := opts.client().do(cmd.Context(), "GET", "/api/v1/ledger/consistency", nil, "", &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !resp.Consistent {
				fmt.Fprintf(out, "Consistency check FAILED (%d wallets checked)\n", resp.WalletsChecked)
				for _, d := range resp.Discrepancies {
					fmt.Fprintf(out, "  %s: balance %s, log sum %s\n", d.UserID, d.Balance, d.LogSum)
				}
				return fmt.Errorf("ledger is inconsistent")
			}

			fmt.Fprintf(out, "Consistency check PASSED (%d wallets checked)\n", resp.WalletsChecked)
			return nil
		},
	}

	cmd.AddCommand(consistency)
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Token utilities",
	}

	var user, email, secret string
	var ttl time.Duration

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Mint a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("a signing secret is required (--secret or JWT_SECRET)")
			}
			token, err := auth.NewJWTManager(secret, ttl).Generate(user, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&user, "user", "", "User id to embed")
	issue.Flags().StringVar(&email, "email", "", "Optional email claim")
	issue.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret")
	issue.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = issue.MarkFlagRequired("user")

	cmd.AddCommand(issue)
	return cmd
}

// migrator is the subset of postgres.Migrator the migrate command uses.
type migrator interface {
	Up() error
	Down() error
}

var newMigrator = func(databaseURL, path string) migrator {
	return postgres.NewMigrator(databaseURL, path, logger.New(logger.Config{Level: "info", Format: "console"}))
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	var databaseURL, path string
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	cmd.PersistentFlags().StringVar(&path, "path", envOr("MIGRATIONS_PATH", "migrations"), "Migrations directory")

	run := func(step func(migrator) error) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return fmt.Errorf("a database URL is required (--database-url or DATABASE_URL)")
			}
			return step(newMigrator(databaseURL, path))
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  run(func(m migrator) error { return m.Up() }),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE:  run(func(m migrator) error { return m.Down() }),
		},
	)

	return cmd
}

func printAuctions(w io.Writer, auctions []dto.AuctionResponse) {
	if len(auctions) == 0 {
		fmt.Fprintln(w, "No open auctions")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tBIDS\tENDS")
	for _, a := range auctions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			a.ID, truncate(a.Title, 30), a.CurrentPrice.StringFixed(2), a.BidCount, a.EndTime.Format(time.RFC3339))
	}
	tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
