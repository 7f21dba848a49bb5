package instruments

import (
	"time"

	"github.com/google/uuid"
)

// OptionRight distinguishes calls from puts.
type OptionRight string

const (
	OptionCall OptionRight = "CALL"
	OptionPut  OptionRight = "PUT"
)

// OptionContract is one entry of the option catalog for the tracked
// underlying.
type OptionContract struct {
	UID    uuid.UUID   `json:"uid"`
	Ticker string      `json:"ticker"`
	Right  OptionRight `json:"right"`
	Strike float64     `json:"strike"`
	Expiry time.Time   `json:"expiry"`
	Lot    int32       `json:"lot"`
}
