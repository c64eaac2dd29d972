package forecast

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/fire-life/firelife/internal/apperr"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		wantErr string // substring of the error message, "" means success
	}{
		{
			name:    "valid request",
			raw:     map[string]any{"planId": "p1", "currentAssets": 50000.0},
			wantErr: "",
		},
		{
			name:    "integer-typed assets from json.Number",
			raw:     map[string]any{"planId": "p1", "currentAssets": json.Number("50000")},
			wantErr: "",
		},
		{
			name:    "missing planId",
			raw:     map[string]any{"currentAssets": 50000.0},
			wantErr: "planId",
		},
		{
			name:    "empty body reports planId first",
			raw:     map[string]any{},
			wantErr: "planId",
		},
		{
			name:    "planId wrong type",
			raw:     map[string]any{"planId": 42.0, "currentAssets": 50000.0},
			wantErr: "planId",
		},
		{
			name:    "planId empty string",
			raw:     map[string]any{"planId": "", "currentAssets": 50000.0},
			wantErr: "planId",
		},
		{
			name:    "missing currentAssets",
			raw:     map[string]any{"planId": "p1"},
			wantErr: "currentAssets is required",
		},
		{
			name:    "currentAssets as string",
			raw:     map[string]any{"planId": "p1", "currentAssets": "1000"},
			wantErr: "currentAssets must be a number",
		},
		{
			name:    "null currentAssets",
			raw:     map[string]any{"planId": "p1", "currentAssets": nil},
			wantErr: "currentAssets is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest(tt.raw)

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("DecodeRequest() error: %v", err)
				}
				if req.PlanID != "p1" || req.CurrentAssets != 50000 {
					t.Errorf("DecodeRequest() = %+v, want planId=p1 currentAssets=50000", req)
				}
				return
			}

			if err == nil {
				t.Fatal("DecodeRequest() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
			if apperr.KindOf(err) != apperr.KindInvalidInput {
				t.Errorf("error kind = %v, want KindInvalidInput", apperr.KindOf(err))
			}
		})
	}
}

func TestDecodeRequest_FailFastOrder(t *testing.T) {
	// Both fields invalid: only the planId violation is reported
	_, err := DecodeRequest(map[string]any{"currentAssets": "not-a-number"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "planId") {
		t.Errorf("expected planId to be reported first, got %q", err.Error())
	}
}
