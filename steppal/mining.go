package steppal

import (
	"math"
	"time"
)

// MiningLedger accrues coins from steps and settles them into the balance.
type MiningLedger struct {
	cal *Calendar
}

func NewMiningLedger(cal *Calendar) *MiningLedger {
	return &MiningLedger{cal: cal}
}

// CoinsForSteps returns the coins mined by the steps at the given stage.
func CoinsForSteps(steps int64, stage Stage) float64 {
	if steps <= 0 {
		return 0
	}
	return float64(steps) / 1000 * BaseCoinsPer1000Steps * stage.MiningEfficiency()
}

// Accrue adds mined coins to the pending reward and to today's mining history. The stage must be the
// stage the pet had while walking the steps.
func (l *MiningLedger) Accrue(coins *CoinLedger, steps int64, stage Stage, now time.Time) float64 {
	amount := CoinsForSteps(steps, stage)
	if amount <= 0 {
		return 0
	}
	coins.PendingReward += amount

	date := l.cal.Date(now)
	for _, entry := range coins.MiningHistory {
		if entry.Date == date {
			entry.Amount += amount
			return amount
		}
	}
	coins.MiningHistory = append(coins.MiningHistory, &MiningEntry{Date: date, Amount: amount})
	if len(coins.MiningHistory) > MiningHistoryLimit {
		coins.MiningHistory = coins.MiningHistory[len(coins.MiningHistory)-MiningHistoryLimit:]
	}
	return amount
}

// Claim moves the whole part of the pending reward into the balance. The fractional remainder stays pending.
func (l *MiningLedger) Claim(coins *CoinLedger, now time.Time) int64 {
	whole := math.Floor(coins.PendingReward)
	if whole < 1 {
		return 0
	}
	claimed := int64(whole)
	coins.PendingReward -= whole
	coins.Balance += claimed
	coins.TotalEarned += claimed
	coins.LastClaimTimeSec = now.Unix()
	return claimed
}

// Credit adds an integer reward directly to the balance.
func (l *MiningLedger) Credit(coins *CoinLedger, amount int64) {
	if amount <= 0 {
		return
	}
	coins.Balance += amount
	coins.TotalEarned += amount
}

// Spend removes a cost from the balance. Spending never lowers the total earned.
func (l *MiningLedger) Spend(coins *CoinLedger, cost int64) error {
	if coins.Balance < cost {
		return ErrInsufficientFunds
	}
	coins.Balance -= cost
	return nil
}
