package service

import (
	"errors"
)

// Kind classifies engine errors. Only KindStorage means state may be worth
// retrying; every other kind is a terminal outcome and nothing changed.
type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindNoWin
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindNoWin:
		return "no_win"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// Error is the error type every engine operation returns.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets a category sentinel (empty Msg) match every error of its kind,
// so errors.Is(ErrAlreadySold, ErrConflict) holds.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Msg != "" {
		return false
	}
	return t.Kind == e.Kind
}

// category sentinels
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrStorage    = &Error{Kind: KindStorage}
)

var (
	ErrAmountOutOfRange = &Error{Kind: KindValidation, Msg: "amount exceeds the 6-digit number space"}
	ErrInvalidSource    = &Error{Kind: KindValidation, Msg: "draw source must be issued or sold-only"}

	ErrTicketNotFound   = &Error{Kind: KindNotFound, Msg: "ticket not found in round"}
	ErrCustomerNotFound = &Error{Kind: KindNotFound, Msg: "customer not found"}
	ErrPurchaseNotFound = &Error{Kind: KindNotFound, Msg: "purchase not found"}
	ErrNoPool           = &Error{Kind: KindNotFound, Msg: "no tickets to draw from"}

	ErrAlreadySold           = &Error{Kind: KindConflict, Msg: "ticket already sold"}
	ErrInsufficientFunds     = &Error{Kind: KindConflict, Msg: "insufficient funds"}
	ErrRoundClosed           = &Error{Kind: KindConflict, Msg: "round already drawn"}
	ErrAlreadyDrawn          = &Error{Kind: KindConflict, Msg: "round already drawn, returning existing prizes"}
	ErrDrawInProgress        = &Error{Kind: KindConflict, Msg: "draw already in progress"}
	ErrAlreadyRedeemed       = &Error{Kind: KindConflict, Msg: "purchase already redeemed"}
	ErrNotDrawn              = &Error{Kind: KindConflict, Msg: "round not drawn yet"}
	ErrRoundHasPurchases     = &Error{Kind: KindConflict, Msg: "round already has purchases"}
	ErrPreviousRoundNotDrawn = &Error{Kind: KindConflict, Msg: "previous round not drawn yet"}

	ErrNoWin = &Error{Kind: KindNoWin, Msg: "no matching prize"}
)

func invalid(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func storageErr(msg string, err error) error {
	return &Error{Kind: KindStorage, Msg: msg, Err: err}
}

// classify passes engine errors through and turns anything else into a storage error.
func classify(msg string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return storageErr(msg, err)
}

// KindOf returns the kind of err, 0 for nil, KindStorage for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// resultLabel is the metrics result label of err.
func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return KindOf(err).String()
}
