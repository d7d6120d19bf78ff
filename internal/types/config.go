package types

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	DefaultCacheCapacity  = 1000
	DefaultDailyCallLimit = 20000
	DefaultSettleDelay    = time.Second
	DefaultListenPort     = 8080
)

// Settings is the process configuration, loaded once at boot from a YAML file.
// The Tournament flags gate team operations before any store access.
type Settings struct {
	ListenPort     int                `yaml:"listen_port"`
	CacheCapacity  int                `yaml:"cache_capacity"`
	DailyCallLimit int                `yaml:"daily_call_limit"`
	SettleDelayMS  int                `yaml:"settle_delay_ms"`
	Tournament     TournamentSettings `yaml:"tournament"`
}

// TournamentSettings mirrors the feature-flag object described in the service
// settings: a false flag rejects the corresponding team operation with a
// descriptive error.
type TournamentSettings struct {
	Active           bool `yaml:"active"`
	AddTeam          bool `yaml:"add_team"`
	EditTeamMembers  bool `yaml:"edit_team_members"`
	ChangeTeamName   bool `yaml:"change_team_name"`
	ChangeTournament bool `yaml:"change_tournament"`
	LeaveTeam        bool `yaml:"leave_team"`
	DeleteTeam       bool `yaml:"delete_team"`
	// RejectDuplicateMembers rejects rosters listing the same member twice.
	// Off by default: duplicate entries within one roster are tolerated.
	RejectDuplicateMembers bool `yaml:"reject_duplicate_members"`
}

// SettleDelay is the pause appended to every team-mutating operation to smooth
// store replication lag. Zero in settings means the default 1s.
func (s Settings) SettleDelay() time.Duration {
	if s.SettleDelayMS <= 0 {
		return DefaultSettleDelay
	}
	return time.Duration(s.SettleDelayMS) * time.Millisecond
}

func (s *Settings) applyDefaults() {
	if s.ListenPort == 0 {
		s.ListenPort = DefaultListenPort
	}
	if s.CacheCapacity == 0 {
		s.CacheCapacity = DefaultCacheCapacity
	}
	if s.DailyCallLimit == 0 {
		s.DailyCallLimit = DefaultDailyCallLimit
	}
}

func (s Settings) Validate() error {
	if s.ListenPort < 0 || s.ListenPort > 65535 {
		return fmt.Errorf("listen_port out of range: %d", s.ListenPort)
	}
	if s.CacheCapacity < 0 {
		return fmt.Errorf("cache_capacity must be non-negative")
	}
	if s.DailyCallLimit < 0 {
		return fmt.Errorf("daily_call_limit must be non-negative")
	}
	return nil
}

// LoadSettings reads and validates a settings file. A missing path yields
// defaults with every tournament flag off.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, Err(ErrInvalidSettings, err, "reading settings file %s", path)
		}
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return Settings{}, Err(ErrInvalidSettings, err, "parsing settings file %s", path)
		}
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, Err(ErrInvalidSettings, err, "")
	}
	return s, nil
}
