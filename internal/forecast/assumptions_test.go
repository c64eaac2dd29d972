package forecast

import "testing"

func TestLoadAssumptions(t *testing.T) {
	presets, err := LoadAssumptions()
	if err != nil {
		t.Fatalf("LoadAssumptions() error: %v", err)
	}
	if len(presets) == 0 {
		t.Fatal("expected at least one preset")
	}

	for _, p := range presets {
		if p.Name == "" {
			t.Error("preset with empty name")
		}
		if p.WithdrawalRate <= 0 || p.WithdrawalRate > 0.1 {
			t.Errorf("preset %q has implausible withdrawal rate %v", p.Name, p.WithdrawalRate)
		}
		if p.ExpectedReturn <= 0 || p.ExpectedReturn > 0.2 {
			t.Errorf("preset %q has implausible expected return %v", p.Name, p.ExpectedReturn)
		}
	}
}
