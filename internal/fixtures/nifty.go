// Package fixtures holds a frozen NIFTY option chain for demos and tests.
package fixtures

import (
	"time"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
)

func f64(v float64) *float64 { return &v }

// NiftySnapshot is four strikes of a weekly NIFTY chain captured at the close of
// 16-Oct-2025. Strike 20000 has no put IV and 20200 has no previous prices.
func NiftySnapshot() analytics.OptionChainSnapshot {
	return analytics.OptionChainSnapshot{
		Symbol:       "NIFTY",
		Spot:         20010,
		Future:       20060,
		RiskFreeRate: 0.065,
		Timestamp:    time.Date(2025, 10, 16, 15, 30, 0, 0, time.UTC),
		Expiry:       "23-Oct-2025",
		Records: []analytics.StrikeRecord{
			{
				Strike: 19900, CEOI: 40000, PEOI: 110000, CEOIChange: -6000, PEOIChange: 15000,
				CEPrice: 160, CEPricePrev: f64(130), PEPrice: 45, PEPricePrev: f64(60),
				CEVolume: 60000, PEVolume: 140000, CEIV: f64(0.145), PEIV: f64(0.155),
			},
			{
				Strike: 20000, CEOI: 100000, PEOI: 95000, CEOIChange: -2000, PEOIChange: 8000,
				CEPrice: 105, CEPricePrev: f64(95), PEPrice: 90, PEPricePrev: f64(100),
				CEVolume: 220000, PEVolume: 210000, CEIV: f64(0.14),
			},
			{
				Strike: 20100, CEOI: 90000, PEOI: 30000, CEOIChange: 12000, PEOIChange: -4000,
				CEPrice: 60, CEPricePrev: f64(75), PEPrice: 150, PEPricePrev: f64(120),
				CEVolume: 150000, PEVolume: 50000, CEIV: f64(0.13), PEIV: f64(0.15),
			},
			{
				Strike: 20200, CEOI: 70000, PEOI: 5000, CEOIChange: 3000,
				CEPrice: 25, PEPrice: 215,
				CEVolume: 80000, PEVolume: 1000,
			},
		},
	}
}

// NiftyExpiryOI is total open interest per strike for the weekly and monthly expiries.
// Strikes 20000 and 20100 have rolled to the monthly.
func NiftyExpiryOI() map[string]map[float64]int64 {
	return map[string]map[float64]int64{
		"23-Oct-2025": {19900: 150000, 20000: 195000, 20100: 120000, 20200: 75000},
		"30-Oct-2025": {19900: 100000, 20000: 300000, 20100: 150000, 20200: 90000},
	}
}
