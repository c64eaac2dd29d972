package forecast

import (
	"fmt"
	"math"
)

// maxHorizonYears caps the projection so a plan that never reaches its
// target still terminates
const maxHorizonYears = 100

// Inputs holds everything the projection needs. Rates are decimal
// fractions (0.07 = 7%).
type Inputs struct {
	CurrentAge     int
	CurrentAssets  float64
	AnnualExpenses float64
	AnnualSavings  float64
	ExpectedReturn float64
	InflationRate  float64
	WithdrawalRate float64
}

// YearRow is one projected year in today's money
type YearRow struct {
	Year        int     `json:"year"` // years from now, starting at 1
	Age         int     `json:"age"`
	StartAssets float64 `json:"start_assets"`
	Growth      float64 `json:"growth"`
	Savings     float64 `json:"savings"`
	EndAssets   float64 `json:"end_assets"`
}

// Result is the outcome of a projection run
type Result struct {
	TargetAssets      float64   `json:"target_assets"`
	Achievable        bool      `json:"achievable"`
	YearsToRetirement int       `json:"years_to_retirement"`
	RetirementAge     int       `json:"retirement_age"`
	FinalAssets       float64   `json:"final_assets"`
	Projection        []YearRow `json:"projection"`
}

// RealReturn converts a nominal return to an inflation-adjusted one
// using the Fisher equation.
func RealReturn(nominal, inflation float64) float64 {
	return (1+nominal)/(1+inflation) - 1
}

// TargetAssets is the asset level at which the withdrawal rate covers
// annual expenses (the "FIRE number").
func TargetAssets(annualExpenses, withdrawalRate float64) float64 {
	return annualExpenses / withdrawalRate
}

func (in Inputs) validate() error {
	if in.WithdrawalRate <= 0 {
		return fmt.Errorf("withdrawal rate must be positive")
	}
	if in.AnnualExpenses <= 0 {
		return fmt.Errorf("annual expenses must be positive")
	}
	if in.AnnualSavings < 0 {
		return fmt.Errorf("annual savings cannot be negative")
	}
	if in.CurrentAssets < 0 {
		return fmt.Errorf("current assets cannot be negative")
	}
	if in.InflationRate <= -1 {
		return fmt.Errorf("inflation rate must be greater than -100%%")
	}
	for _, v := range []float64{in.CurrentAssets, in.AnnualExpenses, in.AnnualSavings, in.ExpectedReturn, in.InflationRate, in.WithdrawalRate} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("inputs must be finite numbers")
		}
	}
	return nil
}

// Project runs the year-by-year projection in today's money: assets
// compound at the real return and savings are added once per year,
// until the target is reached or the horizon runs out.
func Project(in Inputs) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	target := TargetAssets(in.AnnualExpenses, in.WithdrawalRate)
	real := RealReturn(in.ExpectedReturn, in.InflationRate)

	result := &Result{
		TargetAssets: target,
		Projection:   []YearRow{},
	}

	// Already at the target: retirement is possible today
	if in.CurrentAssets >= target {
		result.Achievable = true
		result.RetirementAge = in.CurrentAge
		result.FinalAssets = in.CurrentAssets
		return result, nil
	}

	assets := in.CurrentAssets
	for year := 1; year <= maxHorizonYears; year++ {
		growth := assets * real
		end := assets + growth + in.AnnualSavings

		result.Projection = append(result.Projection, YearRow{
			Year:        year,
			Age:         in.CurrentAge + year,
			StartAssets: assets,
			Growth:      growth,
			Savings:     in.AnnualSavings,
			EndAssets:   end,
		})

		assets = end
		if assets >= target {
			result.Achievable = true
			result.YearsToRetirement = year
			result.RetirementAge = in.CurrentAge + year
			break
		}
	}

	result.FinalAssets = assets
	return result, nil
}
