package forecast

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed assumptions.yaml
var assumptionsYAML []byte

// AssumptionPreset is a named set of market assumptions users can start
// a plan from
type AssumptionPreset struct {
	Name           string  `yaml:"name" json:"name"`
	Description    string  `yaml:"description" json:"description"`
	ExpectedReturn float64 `yaml:"expected_return" json:"expected_return"`
	InflationRate  float64 `yaml:"inflation_rate" json:"inflation_rate"`
	WithdrawalRate float64 `yaml:"withdrawal_rate" json:"withdrawal_rate"`
}

// LoadAssumptions parses the embedded market-assumption presets
func LoadAssumptions() ([]AssumptionPreset, error) {
	var doc struct {
		Presets []AssumptionPreset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(assumptionsYAML, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse assumption presets: %w", err)
	}
	if len(doc.Presets) == 0 {
		return nil, fmt.Errorf("no assumption presets defined")
	}
	return doc.Presets, nil
}
