package domain

import "errors"

var (
	// Identity and access errors
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("operation not permitted for this user")

	// Lookup errors
	ErrAuctionNotFound = errors.New("auction not found")
	ErrWalletNotFound  = errors.New("wallet not found")

	// Validation errors
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidAmount = errors.New("amount must be positive")

	// Auction state errors
	ErrAuctionNotActive  = errors.New("auction is not active")
	ErrAlreadyEnded      = errors.New("auction has already ended")
	ErrAuctionNotExpired = errors.New("auction has not reached its end time")

	// Bid errors
	ErrBidTooLow = errors.New("bid amount must be higher than current price")
	ErrSelfBid   = errors.New("cannot bid on your own auction")

	// Ledger errors
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyRefunded   = errors.New("bid hold already refunded")

	// Infrastructure errors
	ErrStorageFailure = errors.New("storage failure")
	ErrConflict       = errors.New("concurrent update conflict, retry the request")
)

// ErrorKind is a stable, machine readable classification of an error.
type ErrorKind string

const (
	KindUnauthenticated   ErrorKind = "unauthenticated"
	KindForbidden         ErrorKind = "forbidden"
	KindNotFound          ErrorKind = "not_found"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindAuctionNotActive  ErrorKind = "auction_not_active"
	KindAlreadyEnded      ErrorKind = "already_ended"
	KindNotExpired        ErrorKind = "not_expired"
	KindBidTooLow         ErrorKind = "bid_too_low"
	KindSelfBid           ErrorKind = "self_bid"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindAlreadyRefunded   ErrorKind = "already_refunded"
	KindConflict          ErrorKind = "conflict"
	KindStorageFailure    ErrorKind = "storage_failure"
	KindUnknown           ErrorKind = "unknown"
)

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrForbidden, KindForbidden},
	{ErrAuctionNotFound, KindNotFound},
	{ErrWalletNotFound, KindNotFound},
	{ErrInvalidInput, KindInvalidInput},
	{ErrInvalidAmount, KindInvalidInput},
	{ErrAuctionNotActive, KindAuctionNotActive},
	{ErrAlreadyEnded, KindAlreadyEnded},
	{ErrAuctionNotExpired, KindNotExpired},
	{ErrBidTooLow, KindBidTooLow},
	{ErrSelfBid, KindSelfBid},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrAlreadyRefunded, KindAlreadyRefunded},
	{ErrConflict, KindConflict},
	{ErrStorageFailure, KindStorageFailure},
}

// KindOf classifies err. Errors that wrap none of the domain sentinels are KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// IsDomainError reports whether err wraps one of the domain sentinels.
func IsDomainError(err error) bool {
	return KindOf(err) != KindUnknown && err != nil
}
