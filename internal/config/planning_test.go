package config

import "testing"

func TestDefaultPlanning(t *testing.T) {
	p := DefaultPlanning()
	if p.ZServiceLevel != 1.65 || p.DefaultLeadTimeDays != 14 || p.TargetDaysOfSupply != 30 {
		t.Errorf("Unexpected replenishment defaults: %+v", p)
	}
	if p.MaxCashPerOrder != 50000 || p.LowDoSWarning != 15 || p.ShrinkThresholdPct != 0.05 {
		t.Errorf("Unexpected budget defaults: %+v", p)
	}
	if p.DefaultConversion != 0.15 || p.DefaultAttachRate != 1.2 {
		t.Errorf("Unexpected event rate defaults: %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestPlanningValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(p *Planning)
	}{
		{"negative z", func(p *Planning) { p.ZServiceLevel = -1 }},
		{"zero lead time", func(p *Planning) { p.DefaultLeadTimeDays = 0 }},
		{"negative budget", func(p *Planning) { p.MaxCashPerOrder = -5 }},
		{"negative conversion", func(p *Planning) { p.DefaultConversion = -0.1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultPlanning()
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Errorf("Expected validation error")
			}
		})
	}
}

func TestRateTableLookup(t *testing.T) {
	rates := RateTable{
		{EventType: "Trade Show", Category: "Apparel"}: {Conversion: 0.2, Attach: 1.5},
	}
	r, ok := rates.Lookup("Trade Show", "Apparel")
	if !ok || r.Conversion != 0.2 || r.Attach != 1.5 {
		t.Errorf("Expected mapped rate, got %+v ok=%v", r, ok)
	}
	if _, ok := rates.Lookup("Trade Show", "Snacks"); ok {
		t.Errorf("Expected no mapping for unmapped category")
	}
	var empty RateTable
	if _, ok := empty.Lookup("x", "y"); ok {
		t.Errorf("Expected nil table lookup to miss")
	}
}
