package compliance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// CategoryCap is the policy cap of one benefit category.
type CategoryCap struct {
	Title    string `yaml:"title"`
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// RiskThresholds map a risk score to a label: >= Low is "Low", >= Moderate
// is "Moderate", anything else "High".
type RiskThresholds struct {
	Low      int `yaml:"low"`
	Moderate int `yaml:"moderate"`
}

// DocumentRequirements lists the documents required per household shape.
type DocumentRequirements struct {
	Base     []string `yaml:"base"`
	Married  []string `yaml:"married"`
	Children []string `yaml:"children"`
}

// Policy is the HR relocation policy used for coverage and report building.
type Policy struct {
	Currency             string                 `yaml:"currency"`
	NearLimitBand        float64                `yaml:"nearLimitBand"`
	LeadTimeMinDays      int                    `yaml:"leadTimeMinDays"`
	PassportValidityDays int                    `yaml:"passportValidityDays"`
	Caps                 map[string]CategoryCap `yaml:"caps"`
	RiskThresholds       RiskThresholds         `yaml:"riskThresholds"`
	DocumentRequirements DocumentRequirements   `yaml:"documentRequirements"`
}

// DefaultPolicy is used when no policy file is configured. Amounts are in
// minor units (cents).
func DefaultPolicy() *Policy {
	return &Policy{
		Currency:             "USD",
		NearLimitBand:        DefaultNearLimitBand,
		LeadTimeMinDays:      30,
		PassportValidityDays: 180,
		Caps: map[string]CategoryCap{
			"housing":     {Title: "Housing", Amount: 500000},
			"movers":      {Title: "Movers & Logistics", Amount: 1000000},
			"schools":     {Title: "Schools", Amount: 2000000},
			"immigration": {Title: "Immigration & Legal", Amount: 400000},
		},
		RiskThresholds: RiskThresholds{Low: 80, Moderate: 60},
		DocumentRequirements: DocumentRequirements{
			Base:     []string{"Passport scans", "Employment letter"},
			Married:  []string{"Marriage certificate"},
			Children: []string{"Birth certificates"},
		},
	}
}

// ParsePolicy decodes YAML on top of DefaultPolicy, so omitted keys keep
// their defaults. A caps block replaces the default caps as a whole.
func ParsePolicy(data []byte) (*Policy, error) {
	p := DefaultPolicy()
	defaultCaps := p.Caps
	p.Caps = nil
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	if p.Caps == nil {
		p.Caps = defaultCaps
	}
	if p.NearLimitBand <= 0 || p.NearLimitBand >= 1 {
		return nil, fmt.Errorf("nearLimitBand must be in (0,1), got %v", p.NearLimitBand)
	}
	for name, c := range p.Caps {
		if c.Amount < 0 {
			return nil, fmt.Errorf("cap %s must not be negative", name)
		}
	}
	return p, nil
}

// LoadPolicy reads a policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// PolicySource serves the current policy. A file-backed source reloads on
// change; a bad edit keeps the last good policy.
type PolicySource struct {
	current atomic.Pointer[Policy]
	path    string
	band    float64
	log     zerolog.Logger
}

// NewStaticPolicySource always serves p.
func NewStaticPolicySource(p *Policy) *PolicySource {
	s := &PolicySource{log: zerolog.Nop()}
	s.current.Store(p)
	return s
}

// NewFilePolicySource loads path once. Call Watch to follow edits.
func NewFilePolicySource(path string, log zerolog.Logger) (*PolicySource, error) {
	p, err := LoadPolicy(path)
	if err != nil {
		return nil, err
	}
	s := &PolicySource{path: path, log: log}
	s.current.Store(p)
	return s, nil
}

// OverrideNearLimitBand pins the near-limit band on the current policy and
// on every reload. Zero keeps the band from the file. Call it before Watch.
func (s *PolicySource) OverrideNearLimitBand(band float64) {
	s.band = band
	if p := s.current.Load(); p != nil {
		s.store(p)
	}
}

func (s *PolicySource) store(p *Policy) {
	if s.band > 0 && s.band < 1 {
		cp := *p
		cp.NearLimitBand = s.band
		p = &cp
	}
	s.current.Store(p)
}

// Current returns the active policy.
func (s *PolicySource) Current() *Policy {
	return s.current.Load()
}

// Watch reloads the policy whenever the file changes, until ctx is done.
// The parent directory is watched so that rename-over saves and ConfigMap
// symlink swaps are seen as well as in-place writes.
func (s *PolicySource) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	target := filepath.Clean(s.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !policyEvent(event, target) {
					continue
				}
				s.reload()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn().Err(err).Str("path", s.path).Msg("Policy watcher error")
			}
		}
	}()
	return nil
}

func policyEvent(event fsnotify.Event, target string) bool {
	if event.Has(fsnotify.Remove) || event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	// Kubernetes swaps a ConfigMap by renaming its ..data symlink.
	return name == target || filepath.Base(name) == "..data"
}

func (s *PolicySource) reload() {
	p, err := LoadPolicy(s.path)
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("Policy reload failed; keeping previous policy")
		return
	}
	s.store(p)
	s.log.Info().Str("path", s.path).Msg("Policy reloaded")
}
