package domain

// LimitViolation is one broken limit rule. Violations are collected, not
// short-circuited, so a consumer can render several at once.
type LimitViolation struct {
	Code    string
	Message string
}

const (
	LimitCodeBelowMinimum   = "amount_below_minimum"
	LimitCodeAboveMaximum   = "amount_above_maximum"
	LimitCodeMonthlyVolume  = "monthly_volume_exceeded"
	LimitCodeDailyTxCount   = "daily_transaction_count_exceeded"
	LimitWarnMonthlyNearCap = "monthly_volume_above_80_percent"
)

type LimitsResult struct {
	Valid                      bool
	Errors                     []LimitViolation
	Warnings                   []LimitViolation
	RemainingMonthlyUSD        float64
	RemainingDailyTransactions int
}
