package models

import "time"

// TransactionModel is the executed-transactions table read by the limits
// guard. Writes happen in the transaction service; this service only
// aggregates.
type TransactionModel struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	UserID    string `gorm:"index:idx_tx_user_created"`
	Pair      string
	Direction string
	AmountUSD float64
	Currency  string
	Amount    float64
	CreatedAt time.Time `gorm:"index:idx_tx_user_created"`
}

func (TransactionModel) TableName() string {
	return "transactions"
}
