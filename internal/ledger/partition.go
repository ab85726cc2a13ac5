package ledger

import (
	"fmt"
	"time"
)

// PartitionKey derives the ledger partition for the billing period
// containing now. Periods are calendar months in UTC, so every worker
// of an account lands on the same key for the same month regardless of
// local timezone.
func PartitionKey(now time.Time, accountID string) string {
	now = now.UTC()
	return fmt.Sprintf("%04d-%02d:%s", now.Year(), int(now.Month()), accountID)
}
