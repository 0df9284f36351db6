package analytics

import "math"

const (
	// DefaultRelativeStep is the finite-difference bump as a fraction of spot
	DefaultRelativeStep = 0.0005
	// minAbsoluteStep keeps the bump away from zero when spot is tiny
	minAbsoluteStep = 1e-4
)

// NormalCDF is the standard normal cumulative distribution function
func NormalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// TheoreticalCallPrice prices a European call with Black-Scholes.
// Expired or zero-volatility contracts are worth their intrinsic value.
func TheoreticalCallPrice(spot, strike, rate, vol, tau float64) float64 {
	if tau <= 0 || vol <= 0 {
		return math.Max(0, spot-strike)
	}

	sqrtT := math.Sqrt(tau)
	d1 := (math.Log(spot/strike) + (rate+0.5*vol*vol)*tau) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT

	return spot*NormalCDF(d1) - strike*math.Exp(-rate*tau)*NormalCDF(d2)
}

// TheoreticalPutPrice derives the put from the call through put-call parity
func TheoreticalPutPrice(spot, strike, rate, vol, tau float64) float64 {
	call := TheoreticalCallPrice(spot, strike, rate, vol, tau)
	return putFromCall(call, spot, strike, rate, tau)
}

func putFromCall(call, spot, strike, rate, tau float64) float64 {
	return call + strike*math.Exp(-rate*tau) - spot
}

// EstimateDeltaGamma bumps spot both ways and takes central differences of the call price
func EstimateDeltaGamma(spot, strike, rate, vol, tau, relativeStep float64) (delta, gamma float64) {
	eps := finiteDifferenceStep(spot, relativeStep)

	up := TheoreticalCallPrice(spot+eps, strike, rate, vol, tau)
	mid := TheoreticalCallPrice(spot, strike, rate, vol, tau)
	down := TheoreticalCallPrice(spot-eps, strike, rate, vol, tau)

	delta = (up - down) / (2 * eps)
	gamma = (up - 2*mid + down) / (eps * eps)
	return delta, gamma
}

func finiteDifferenceStep(spot, relativeStep float64) float64 {
	if relativeStep <= 0 {
		relativeStep = DefaultRelativeStep
	}
	return math.Max(minAbsoluteStep, spot*relativeStep)
}

// GammaExposure is gamma scaled by spot, contract size and open interest
func GammaExposure(spot, strike, rate, vol, tau float64, openInterest int64, contractSize int, relativeStep float64) float64 {
	if contractSize <= 0 {
		contractSize = 1
	}
	_, gamma := EstimateDeltaGamma(spot, strike, rate, vol, tau, relativeStep)
	return gamma * spot * float64(contractSize) * float64(openInterest)
}

// CarryCost is the future's premium over spot as a fraction of spot
func CarryCost(future, spot float64) float64 {
	if spot == 0 {
		return 0
	}
	return (future - spot) / spot
}

// DefaultDecayDays are the remaining-day points used for time decay curvature
var DefaultDecayDays = []int{30, 7, 3, 1}

// TimeDecayCurvature measures how theta accelerates as expiry approaches.
// pricer returns the option value with the given number of days remaining.
func TimeDecayCurvature(pricer func(days int) float64, days []int) float64 {
	if len(days) == 0 {
		days = DefaultDecayDays
	}

	prices := make([]float64, len(days))
	for i, d := range days {
		if d < 0 {
			d = 0
		}
		prices[i] = pricer(d)
	}

	thetas := make([]float64, 0, len(prices))
	for i := 0; i+1 < len(prices); i++ {
		thetas = append(thetas, prices[i+1]-prices[i])
	}

	switch {
	case len(thetas) >= 3:
		return thetas[2] - 2*thetas[1] + thetas[0]
	case len(thetas) == 2:
		return thetas[1] - thetas[0]
	}
	return 0
}
