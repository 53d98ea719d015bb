package reservation

import "github.com/shopspring/decimal"

// TotalAmount is the price of headCount seats at unitPrice.
func TotalAmount(unitPrice int64, headCount int) int64 {
	return decimal.NewFromInt(unitPrice).
		Mul(decimal.NewFromInt(int64(headCount))).
		IntPart()
}

// RescaleTotal recomputes a total for a new head-count from the previous total,
// using unit price = previousTotal / previousCount. The result is rounded to
// the nearest won.
func RescaleTotal(previousTotal int64, previousCount, newCount int) int64 {
	if previousCount <= 0 {
		return 0
	}
	return decimal.NewFromInt(previousTotal).
		Mul(decimal.NewFromInt(int64(newCount))).
		Div(decimal.NewFromInt(int64(previousCount))).
		Round(0).
		IntPart()
}
