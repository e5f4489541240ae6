package payments

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestMarkFailedKeepsReasonValidUTF8(t *testing.T) {
	now := time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)
	// 254 ASCII bytes followed by multi-byte characters straddle the limit
	reason := strings.Repeat("x", 254) + "Giao dịch thất bại"

	txn := &PaymentTransaction{}
	txn.markFailed(reason, 1006, "", now)

	assert.True(t, utf8.ValidString(txn.FailureReason))
	assert.Equal(t, maxFailureReason, utf8.RuneCountInString(txn.FailureReason))
	assert.Equal(t, strings.Repeat("x", 254)+"G", txn.FailureReason)
	assert.Equal(t, TransactionFailed, txn.Status)
}

func TestMarkFailedLeavesShortReasonAlone(t *testing.T) {
	txn := &PaymentTransaction{}
	txn.markFailed("Giao dịch bị từ chối bởi người dùng", 1006, "", time.Now())

	assert.Equal(t, "Giao dịch bị từ chối bởi người dùng", txn.FailureReason)
}
