package service

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	conflicts := []error{ErrAlreadySold, ErrInsufficientFunds, ErrAlreadyDrawn, ErrAlreadyRedeemed, ErrRoundClosed, ErrNotDrawn}
	for _, err := range conflicts {
		assert.ErrorIs(t, err, ErrConflict, err.Error())
		assert.NotErrorIs(t, err, ErrNotFound, err.Error())
	}
	assert.ErrorIs(t, ErrTicketNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrAmountOutOfRange, ErrValidation)

	// specific sentinels do not match each other
	assert.NotErrorIs(t, ErrAlreadySold, ErrAlreadyRedeemed)

	wrapped := fmt.Errorf("buy: %w", ErrAlreadySold)
	assert.ErrorIs(t, wrapped, ErrAlreadySold)
	assert.ErrorIs(t, wrapped, ErrConflict)
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestClassifyStorage(t *testing.T) {
	err := classify("tx", sql.ErrConnDone)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Equal(t, KindStorage, KindOf(err))
	assert.Equal(t, "storage", resultLabel(err))

	assert.Same(t, ErrNoWin, classify("tx", ErrNoWin))
	assert.Nil(t, classify("tx", nil))
	assert.Equal(t, Kind(0), KindOf(nil))
	assert.Equal(t, KindStorage, KindOf(errors.New("boom")))
	assert.Equal(t, "success", resultLabel(nil))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "conflict", ErrConflict.Error())
	assert.Equal(t, "ticket already sold", ErrAlreadySold.Error())
	assert.Equal(t, "commit: sql: connection is already closed", storageErr("commit", sql.ErrConnDone).Error())
}
