package forecast

import (
	"encoding/json"
	"math"

	"github.com/fire-life/firelife/internal/apperr"
)

// Request is the validated body shared by the forecast-create and
// retirement-calculate endpoints.
type Request struct {
	PlanID        string
	CurrentAssets float64
}

// DecodeRequest validates the raw parsed body and produces a Request.
// Validation is fail-fast with a fixed order: planId first, then
// currentAssets presence and numeric type. The returned error names the
// offending field and maps to HTTP 400.
func DecodeRequest(raw map[string]any) (*Request, error) {
	v, ok := raw["planId"]
	if !ok || v == nil {
		return nil, apperr.InvalidInput("planId is required")
	}
	planID, ok := v.(string)
	if !ok || planID == "" {
		return nil, apperr.InvalidInput("planId must be a non-empty string")
	}

	v, ok = raw["currentAssets"]
	if !ok || v == nil {
		return nil, apperr.InvalidInput("currentAssets is required")
	}
	assets, ok := toNumber(v)
	if !ok {
		return nil, apperr.InvalidInput("currentAssets must be a number")
	}
	if math.IsNaN(assets) || math.IsInf(assets, 0) {
		return nil, apperr.InvalidInput("currentAssets must be a finite number")
	}

	return &Request{PlanID: planID, CurrentAssets: assets}, nil
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
