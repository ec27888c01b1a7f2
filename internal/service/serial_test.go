package service

import (
	"errors"
	"regexp"
	"testing"

	"github.com/mall-next/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSerialNoFormat(t *testing.T) {
	no := newSerialNo(fixedNow)
	assert.Regexp(t, regexp.MustCompile(`^20260310120000\d{6}$`), no)
}

func TestGenerateUniqueSerialRetriesTaken(t *testing.T) {
	calls := 0
	no, err := generateUniqueSerial(fixedNow, func(string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, no, 20)
}

func TestGenerateUniqueSerialExhausted(t *testing.T) {
	calls := 0
	_, err := generateUniqueSerial(fixedNow, func(string) (bool, error) {
		calls++
		return true, nil
	})
	assert.ErrorIs(t, err, ErrSerialExhausted)
	assert.Equal(t, constants.SerialMaxAttempts, calls)
}

func TestGenerateRefundNoPropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	_, err := generateRefundNo(func(string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)

	no, err := generateRefundNo(func(string) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), no)
}
