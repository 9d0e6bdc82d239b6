package enums

// Currency is the ISO 4217 code attached to order totals.
type Currency string

const (
	CurrencyCOP Currency = "COP"
	CurrencyUSD Currency = "USD"
)

// IsValid reports whether the currency is supported.
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyCOP, CurrencyUSD:
		return true
	default:
		return false
	}
}
