// Package arberr defines the error kinds surfaced by the arbitrage engine.
// Callers match them with errors.Is; every failure carries its specific
// kind, never a generic one.
package arberr

import "errors"

var (
	// ErrUnauthorized means the caller lacks privilege for the operation.
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrNotAllowed means a token or venue is not on the allow-list.
	ErrNotAllowed = errors.New("identifier not on allow-list")

	// ErrInvalidAmount means a quantity is zero, negative or malformed.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance means the ledger cannot cover a debit.
	ErrInsufficientBalance = errors.New("insufficient ledger balance")

	// ErrSlippageExceeded means a venue could not honor the minimum-output
	// floor for a swap.
	ErrSlippageExceeded = errors.New("slippage floor not met")

	// ErrDeadlineExceeded means a swap deadline elapsed before the venue
	// could complete it.
	ErrDeadlineExceeded = errors.New("swap deadline elapsed")

	// ErrBelowProfitThreshold means the pre-trade expected profit is under
	// the configured floor.
	ErrBelowProfitThreshold = errors.New("expected profit below threshold")

	// ErrUnprofitable means realized profit after both legs was zero even
	// though the pre-trade check passed.
	ErrUnprofitable = errors.New("arbitrage realized no profit")

	// ErrReentrancy means a guarded operation was entered while another
	// one was still in progress.
	ErrReentrancy = errors.New("reentrant call detected")

	// ErrArithmetic means a balance computation would overflow, underflow
	// or operate on a malformed integer.
	ErrArithmetic = errors.New("arithmetic error")
)
