package evaluation

import (
	"math"

	"chessbench/internal/types"
)

// eloScale converts an Elo difference to the logistic exponent.
const eloScale = math.Ln10 / 400

// EloObservation is one rated game: the opponent's rating and the player's
// score (1 win, 0.5 draw, 0 loss).
type EloObservation struct {
	OpponentElo float64
	Score       float64
}

// expectedScore is the standard Elo win expectancy for the player.
func expectedScore(player, opponent float64) float64 {
	return 1 / (1 + math.Pow(10, (opponent-player)/400))
}

// EstimateElo solves the maximum-likelihood rating by bisection on the score
// residual, which is monotone in the candidate rating. The standard error
// comes from the Fisher information at the estimate.
func EstimateElo(obs []EloObservation) *types.EloEstimate {
	if len(obs) == 0 {
		return nil
	}

	lo, hi := obs[0].OpponentElo, obs[0].OpponentElo
	for _, o := range obs[1:] {
		lo = math.Min(lo, o.OpponentElo)
		hi = math.Max(hi, o.OpponentElo)
	}
	lo -= 2000
	hi += 2000

	residual := func(rating float64) float64 {
		sum := 0.0
		for _, o := range obs {
			sum += o.Score - expectedScore(rating, o.OpponentElo)
		}
		return sum
	}

	// residual decreases as the candidate rating grows.
	for i := 0; i < 200 && hi-lo > 1e-7; i++ {
		mid := (lo + hi) / 2
		if residual(mid) > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	estimate := (lo + hi) / 2

	info := 0.0
	for _, o := range obs {
		p := expectedScore(estimate, o.OpponentElo)
		info += p * (1 - p) * eloScale * eloScale
	}
	se := math.Inf(1)
	if info > 0 {
		se = 1 / math.Sqrt(info)
	}

	return &types.EloEstimate{
		Estimate: estimate,
		StdError: se,
		CILow:    estimate - 1.96*se,
		CIHigh:   estimate + 1.96*se,
		Games:    len(obs),
	}
}
