package risk

import (
	"fmt"

	"HyperTrade/internal/domain/models"
)

// Classify maps an alert to the position change it asks for.
//
// Explicit close actions are checked against the reported positions. For
// buy and sell the (previous, current) market position transition decides.
func Classify(sig models.Signal) (models.SignalType, error) {
	prev, cur := sig.PrevMarketPosition, sig.MarketPosition

	switch sig.Action {
	case models.ActionCloseLong:
		if shortReported(sig) || prev == models.PositionShort {
			return "", inconsistent(sig, "close_long while short")
		}
		if prev != models.PositionLong {
			return "", inconsistent(sig, "close_long without a long position")
		}
		return models.SignalCloseLong, nil
	case models.ActionCloseShort:
		if longReported(sig) || prev == models.PositionLong {
			return "", inconsistent(sig, "close_short while long")
		}
		if prev != models.PositionShort {
			return "", inconsistent(sig, "close_short without a short position")
		}
		return models.SignalCloseShort, nil
	}

	buy := sig.Action == models.ActionBuy

	switch {
	case prev == models.PositionFlat && cur == models.PositionLong && buy:
		return models.SignalOpenLong, nil
	case prev == models.PositionLong && cur == models.PositionFlat && !buy:
		return models.SignalCloseLong, nil
	case prev == models.PositionFlat && cur == models.PositionShort && !buy:
		return models.SignalOpenShort, nil
	case prev == models.PositionShort && cur == models.PositionFlat && buy:
		return models.SignalCloseShort, nil
	case prev == models.PositionLong && cur == models.PositionLong:
		if buy {
			return models.SignalAddLong, nil
		}
		return models.SignalReduceLong, nil
	case prev == models.PositionShort && cur == models.PositionShort:
		if buy {
			return models.SignalReduceShort, nil
		}
		return models.SignalAddShort, nil
	case prev == models.PositionShort && cur == models.PositionLong:
		if !buy {
			return "", inconsistent(sig, "sell cannot reverse short to long")
		}
		return models.SignalReverseToLong, nil
	case prev == models.PositionLong && cur == models.PositionShort:
		if buy {
			return "", inconsistent(sig, "buy cannot reverse long to short")
		}
		return models.SignalReverseToShort, nil
	}
	return models.SignalNoAction, nil
}

func shortReported(sig models.Signal) bool {
	return sig.MarketPosition == models.PositionShort ||
		sig.MarketPositionSize.IsNegative() ||
		sig.PositionSize.IsNegative()
}

func longReported(sig models.Signal) bool {
	return sig.MarketPosition == models.PositionLong ||
		sig.PositionSize.IsPositive()
}

func inconsistent(sig models.Signal, reason string) error {
	return models.PolicyError(models.CodeInconsistent,
		fmt.Sprintf("%s (previous %s, current %s)", reason, sig.PrevMarketPosition, sig.MarketPosition))
}
