package constant

// wallet_ledger.biz_type
const (
	BalanceChangePurchase = 1 // ticket purchase debit
	BalanceChangePrize    = 2 // prize redemption credit
	BalanceChangeAdjust   = 3 // manual adjustment
)

var BalanceChangeTypeDesc = map[int]string{
	BalanceChangePurchase: "purchase",
	BalanceChangePrize:    "prize",
	BalanceChangeAdjust:   "adjust",
}

// GetBalanceChangeTypeDesc returns the string form stored in biz_type_str.
func GetBalanceChangeTypeDesc(changeType int) string {
	if desc, exists := BalanceChangeTypeDesc[changeType]; exists {
		return desc
	}
	return "unknown"
}

func IsValidBalanceChangeType(changeType int) bool {
	_, exists := BalanceChangeTypeDesc[changeType]
	return exists
}

var (
	IncomeTypes  = []int{BalanceChangePrize}
	ExpenseTypes = []int{BalanceChangePurchase}
)

func IsIncomeType(changeType int) bool {
	for _, t := range IncomeTypes {
		if t == changeType {
			return true
		}
	}
	return false
}

func IsExpenseType(changeType int) bool {
	for _, t := range ExpenseTypes {
		if t == changeType {
			return true
		}
	}
	return false
}
