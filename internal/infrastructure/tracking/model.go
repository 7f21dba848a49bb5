package tracking

import "time"

// bindingModel is one tracked_contracts row: a role bound to a contract as
// of update_timestamp. The table always holds the full current set.
type bindingModel struct {
	Role            string    `gorm:"primaryKey;column:role;type:varchar(32);not null"`
	InstrumentUID   string    `gorm:"column:instrument_uid;type:uuid;not null"`
	Ticker          string    `gorm:"column:ticker;type:varchar(64);not null;index"`
	Right           string    `gorm:"column:contract_right;type:varchar(8);not null"`
	Strike          float64   `gorm:"column:strike;type:double precision;not null"`
	Expiry          time.Time `gorm:"column:expiry;type:timestamptz;not null"`
	Lot             int32     `gorm:"column:lot;type:integer;not null"`
	UpdateTimestamp time.Time `gorm:"column:update_timestamp;type:timestamptz;not null"`
}

func (bindingModel) TableName() string {
	return "tracked_contracts"
}
