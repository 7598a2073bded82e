package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/model"
)

// TrackingPolicy reads the tracking section of the application config,
// falling back to defaults for anything unset, and validates the result.
func TrackingPolicy() (model.TrackingPolicy, error) {
	policy := model.DefaultTrackingPolicy()

	if v := viper.GetDuration("tracking.min_study_duration"); v > 0 {
		policy.MinStudyDuration = v
	}
	if v := viper.GetDuration("tracking.max_idle_gap"); v > 0 {
		policy.MaxIdleGap = v
	}
	if v := viper.GetDuration("tracking.pace_window"); v > 0 {
		policy.PaceWindow = v
	}
	if v := viper.GetString("tracking.duplicate_policy"); v != "" {
		policy.Duplicates = model.DuplicatePolicy(v)
	}
	if v := viper.GetString("tracking.split_policy"); v != "" {
		policy.Split = model.SplitPolicy(v)
	}

	if err := policy.Validate(); err != nil {
		return model.TrackingPolicy{}, fmt.Errorf("%w: tracking: %v", common.ErrInvalidConfig, err)
	}
	return policy, nil
}

// Polling holds the capture worker settings from the config file.
type Polling struct {
	Interval time.Duration
	Timeout  time.Duration
	Spool    string
}

// PollingConfig reads the polling section of the application config.
func PollingConfig() Polling {
	p := Polling{
		Interval: 2 * time.Second,
		Timeout:  1500 * time.Millisecond,
		Spool:    ExpandPath(viper.GetString("polling.spool")),
	}
	if v := viper.GetDuration("polling.interval"); v > 0 {
		p.Interval = v
	}
	if v := viper.GetDuration("polling.timeout"); v > 0 {
		p.Timeout = v
	}
	return p
}
