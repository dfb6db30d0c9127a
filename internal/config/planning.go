package config

import (
	"fmt"
	"runtime"

	"github.com/spf13/viper"
)

// RateKey selects a conversion/attach pair by event type and SKU category.
type RateKey struct {
	EventType string
	Category  string
}

// Rate is the share of attendees that buy (Conversion) and the units each buyer takes (Attach).
type Rate struct {
	Conversion float64
	Attach     float64
}

// RateTable maps (event type, category) to its rates.
type RateTable map[RateKey]Rate

// Lookup returns the configured rate, or ok=false when the pair has no entry.
func (t RateTable) Lookup(eventType, category string) (Rate, bool) {
	r, ok := t[RateKey{EventType: eventType, Category: category}]
	return r, ok
}

// Planning is the explicit parameter set handed to every pipeline stage.
type Planning struct {
	ZServiceLevel       float64
	DefaultLeadTimeDays int
	TargetDaysOfSupply  int
	MaxCashPerOrder     float64
	ShrinkThresholdPct  float64 // reported only
	LowDoSWarning       int
	DefaultConversion   float64
	DefaultAttachRate   float64

	DefaultBaselineDaily float64
	DefaultDemandStd     float64

	// Rates is optional. Empty means every event uses the default rates.
	Rates     RateTable
	RatesFile string

	Workers int
}

// DefaultPlanning returns the stock planning parameters.
func DefaultPlanning() Planning {
	return Planning{
		ZServiceLevel:        1.65,
		DefaultLeadTimeDays:  14,
		TargetDaysOfSupply:   30,
		MaxCashPerOrder:      50000,
		ShrinkThresholdPct:   0.05,
		LowDoSWarning:        15,
		DefaultConversion:    0.15,
		DefaultAttachRate:    1.2,
		DefaultBaselineDaily: 1.0,
		DefaultDemandStd:     0.5,
		Workers:              runtime.NumCPU(),
	}
}

// Validate rejects parameter sets the stages cannot run with.
func (p Planning) Validate() error {
	switch {
	case p.ZServiceLevel < 0:
		return fmt.Errorf("z_service_level must be >= 0, got %v", p.ZServiceLevel)
	case p.DefaultLeadTimeDays <= 0:
		return fmt.Errorf("default_lead_time_days must be > 0, got %d", p.DefaultLeadTimeDays)
	case p.TargetDaysOfSupply < 0:
		return fmt.Errorf("target_days_of_supply must be >= 0, got %d", p.TargetDaysOfSupply)
	case p.MaxCashPerOrder < 0:
		return fmt.Errorf("max_cash_per_order must be >= 0, got %v", p.MaxCashPerOrder)
	case p.DefaultConversion < 0 || p.DefaultAttachRate < 0:
		return fmt.Errorf("default event rates must be >= 0")
	}
	return nil
}

func setPlanningDefaults() {
	d := DefaultPlanning()
	viper.SetDefault("PLANNING_Z_SERVICE_LEVEL", d.ZServiceLevel)
	viper.SetDefault("PLANNING_DEFAULT_LEAD_TIME_DAYS", d.DefaultLeadTimeDays)
	viper.SetDefault("PLANNING_TARGET_DAYS_OF_SUPPLY", d.TargetDaysOfSupply)
	viper.SetDefault("PLANNING_MAX_CASH_PER_ORDER", d.MaxCashPerOrder)
	viper.SetDefault("PLANNING_SHRINK_THRESHOLD_PCT", d.ShrinkThresholdPct)
	viper.SetDefault("PLANNING_LOW_DOS_WARNING", d.LowDoSWarning)
	viper.SetDefault("PLANNING_DEFAULT_EVENT_CONVERSION", d.DefaultConversion)
	viper.SetDefault("PLANNING_DEFAULT_ATTACH_RATE", d.DefaultAttachRate)
	viper.SetDefault("PLANNING_DEFAULT_BASELINE_DAILY", d.DefaultBaselineDaily)
	viper.SetDefault("PLANNING_DEFAULT_DEMAND_STD", d.DefaultDemandStd)
	viper.SetDefault("PLANNING_RATES_FILE", "")
	viper.SetDefault("PLANNING_WORKERS", d.Workers)
}

func planningFromViper() Planning {
	return Planning{
		ZServiceLevel:        viper.GetFloat64("PLANNING_Z_SERVICE_LEVEL"),
		DefaultLeadTimeDays:  viper.GetInt("PLANNING_DEFAULT_LEAD_TIME_DAYS"),
		TargetDaysOfSupply:   viper.GetInt("PLANNING_TARGET_DAYS_OF_SUPPLY"),
		MaxCashPerOrder:      viper.GetFloat64("PLANNING_MAX_CASH_PER_ORDER"),
		ShrinkThresholdPct:   viper.GetFloat64("PLANNING_SHRINK_THRESHOLD_PCT"),
		LowDoSWarning:        viper.GetInt("PLANNING_LOW_DOS_WARNING"),
		DefaultConversion:    viper.GetFloat64("PLANNING_DEFAULT_EVENT_CONVERSION"),
		DefaultAttachRate:    viper.GetFloat64("PLANNING_DEFAULT_ATTACH_RATE"),
		DefaultBaselineDaily: viper.GetFloat64("PLANNING_DEFAULT_BASELINE_DAILY"),
		DefaultDemandStd:     viper.GetFloat64("PLANNING_DEFAULT_DEMAND_STD"),
		RatesFile:            viper.GetString("PLANNING_RATES_FILE"),
		Workers:              viper.GetInt("PLANNING_WORKERS"),
	}
}
