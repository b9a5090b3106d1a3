package specialist

import "github.com/Veraticus/mosaic-money/internal/model"

// Lane priorities. A description matching several lanes goes to the highest.
const (
	PriorityAnomaly     = 100
	PriorityTransfer    = 80
	PriorityInvestment  = 60
	PriorityDebtQuality = 40
	PriorityIncome      = 20
)

// DefaultPatterns returns the built-in lane keyword patterns.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:     "Dispute",
			Lane:     model.LaneAnomaly,
			Regex:    `\b(CHARGEBACK|CHARGE\s+BACK|DISPUTED?|FRAUD(ULENT)?|DUPLICATE|UNKNOWN\s+MERCHANT)\b`,
			Priority: PriorityAnomaly,
		},
		{
			Name:     "Transfer",
			Lane:     model.LaneTransfer,
			Regex:    `\b(TRANSFERS?|XFER|ZELLE|VENMO|CASH\s*APP|ACH)\b`,
			Priority: PriorityTransfer,
		},
		{
			Name:     "Brokerage",
			Lane:     model.LaneInvestment,
			Regex:    `\b(BROKERAGE|DIVIDENDS?|STOCKS?|ETFS?|VANGUARD|FIDELITY|SCHWAB|ROBINHOOD|E\s*\*?\s*TRADE)\b`,
			Priority: PriorityInvestment,
		},
		{
			Name:     "Debt Servicing",
			Lane:     model.LaneDebtQuality,
			Regex:    `\b(INTEREST|APR|MINIMUM\s+PAYMENT|LATE\s+FEE|FINANCE\s+CHARGE|LOAN\s+PAYMENT)\b`,
			Priority: PriorityDebtQuality,
		},
		{
			Name:     "Income",
			Lane:     model.LaneIncome,
			Regex:    `\b(PAYROLL|SALARY|PAYCHECK|DIRECT\s*DEP(OSIT)?|INCOME|REFUND)\b`,
			Priority: PriorityIncome,
		},
	}
}
