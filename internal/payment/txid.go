package payment

import (
	"fmt"
	"math/rand"
	"time"
)

const transactionIDPrefix = "TXN"

// NewTransactionID builds TXN + two digit year + six random digits + two digit
// day of month, e.g. TXN2648213718.
//
// TODO: uniqueness rests on 900k random values per day; add a store check and retry
// once initiation volume makes a collision on the unique index plausible.
func NewTransactionID(now time.Time) string {
	return fmt.Sprintf("%s%02d%06d%02d", transactionIDPrefix, now.Year()%100, 100000+rand.Intn(900000), now.Day())
}
