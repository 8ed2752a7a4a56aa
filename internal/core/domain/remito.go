package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// A Remito is an immutable order receipt: a deep copy of the cart at
// finalize time. Later ledger mutations never reach an issued remito.
type Remito struct {
	Number    string
	Customer  string
	CreatedAt time.Time
	Items     []CartItem
	Total     decimal.Decimal
}

// RemitoNumber derives the receipt number from the creation instant,
// REM-DDMMYY-HHMMSS.
func RemitoNumber(t time.Time) string {
	return "REM-" + t.Format("020106-150405")
}
