package config

import "time"

// CheckInConfig tunes the staff check-in sessions.  ScanCooldown is how long
// the scanner stays busy after a lookup attempt, SessionTTL how long an idle
// operator session is kept in memory and FetchTimeout bounds every call to
// the reservation store.
type CheckInConfig struct {
	ScanCooldown time.Duration
	SessionTTL   time.Duration
	FetchTimeout time.Duration
}

// LoadCheckInConfig reads CHECKIN_* variables with defaults.
func LoadCheckInConfig() CheckInConfig {
	cfg := CheckInConfig{
		ScanCooldown: envDur("CHECKIN_SCAN_COOLDOWN", 2*time.Second),
		SessionTTL:   envDur("CHECKIN_SESSION_TTL", 8*time.Hour),
		FetchTimeout: envDur("CHECKIN_FETCH_TIMEOUT", 5*time.Second),
	}
	if cfg.ScanCooldown < 0 {
		cfg.ScanCooldown = 0
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 8 * time.Hour
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	return cfg
}
