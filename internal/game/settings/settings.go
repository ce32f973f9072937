// Package settings loads and validates the per-game configuration: the role
// list, phase lengths, modifiers and the maximum day count.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/nightfall/internal/game/phase"
)

// ErrInvalidRoleList is returned when a role list cannot be assigned.
var ErrInvalidRoleList = errors.New("invalid role list")

// Modifier toggles an optional rule for one game.
type Modifier string

const (
	// ObscuredGraves hides the role and will on every grave.
	ObscuredGraves Modifier = "obscured_graves"
	// DeadCanChat lets dead players speak in the All channel.
	DeadCanChat Modifier = "dead_can_chat"
	// NoTrialsDayOne skips nominations on the first day.
	NoTrialsDayOne Modifier = "no_trials_day_one"
)

var knownModifiers = map[Modifier]bool{
	ObscuredGraves: true,
	DeadCanChat:    true,
	NoTrialsDayOne: true,
}

// DefaultTrialsPerDay is used when a settings file leaves trials_per_day unset.
const DefaultTrialsPerDay = 3

// DefaultMaxDay is used when a settings file leaves max_day unset.
const DefaultMaxDay = 30

// Settings is the complete configuration of one game.
type Settings struct {
	RoleList     RoleList       `yaml:"role_list"`
	PhaseTimes   map[string]int `yaml:"phase_times"`
	Modifiers    []Modifier     `yaml:"modifiers"`
	MaxDay       int            `yaml:"max_day"`
	TrialsPerDay int            `yaml:"trials_per_day"`
	Script       string         `yaml:"script"`

	enabled map[Modifier]bool
}

// Default returns settings with stock phase lengths and an empty role list.
func Default() *Settings {
	s := &Settings{MaxDay: DefaultMaxDay, TrialsPerDay: DefaultTrialsPerDay}
	s.index()
	return s
}

// Parse decodes and validates a settings document.
//
// Precondition: data is a YAML document.
// Postcondition: Returns validated Settings or a non-nil error.
func Parse(data []byte) (*Settings, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Settings
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	if s.MaxDay == 0 {
		s.MaxDay = DefaultMaxDay
	}
	if s.TrialsPerDay == 0 {
		s.TrialsPerDay = DefaultTrialsPerDay
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.index()
	return &s, nil
}

// Load reads and parses the settings file at path.
//
// Precondition: path must be a readable file.
// Postcondition: Returns validated Settings or a non-nil error.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return s, nil
}

// Validate checks every field and returns all problems at once.
func (s *Settings) Validate() error {
	var errs []string
	for name, secs := range s.PhaseTimes {
		if _, err := phase.ParseKind(name); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if secs < 0 {
			errs = append(errs, fmt.Sprintf("phase_times.%s must be >= 0, got %d", name, secs))
		}
	}
	for _, m := range s.Modifiers {
		if !knownModifiers[m] {
			errs = append(errs, fmt.Sprintf("unknown modifier %q", m))
		}
	}
	if s.MaxDay < 1 {
		errs = append(errs, fmt.Sprintf("max_day must be >= 1, got %d", s.MaxDay))
	}
	if s.TrialsPerDay < 0 {
		errs = append(errs, fmt.Sprintf("trials_per_day must be >= 0, got %d", s.TrialsPerDay))
	}
	for i, e := range s.RoleList {
		if err := e.validate(); err != nil {
			errs = append(errs, fmt.Sprintf("role_list[%d]: %v", i, err))
		}
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("settings validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (s *Settings) index() {
	s.enabled = make(map[Modifier]bool, len(s.Modifiers))
	for _, m := range s.Modifiers {
		s.enabled[m] = true
	}
}

// Enabled reports whether modifier m is on.
func (s *Settings) Enabled(m Modifier) bool {
	if s.enabled == nil {
		s.index()
	}
	return s.enabled[m]
}

// Times returns the phase lengths: stock values overridden by PhaseTimes.
func (s *Settings) Times() phase.Times {
	t := phase.DefaultTimes()
	for name, secs := range s.PhaseTimes {
		k, err := phase.ParseKind(name)
		if err != nil {
			continue
		}
		t.Set(k, time.Duration(secs)*time.Second)
	}
	return t
}
