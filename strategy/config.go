package strategy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jwlutz/thats-my-quantv1/rules"
	"github.com/jwlutz/thats-my-quantv1/sizer"
)

// Config round-trips a Strategy through a plain map so it can be persisted
// as YAML and reconstructed exactly, nested composite exit rules included.

func (s *Strategy) Config() (map[string]any, error) {
	entries := make([]any, 0, len(s.EntryRules))
	for _, rule := range s.EntryRules {
		m, err := rules.EncodeEntry(rule)
		if err != nil {
			return nil, fmt.Errorf("encode entry rule: %w", err)
		}
		entries = append(entries, m)
	}

	exit, err := rules.EncodeExit(s.ExitRule)
	if err != nil {
		return nil, fmt.Errorf("encode exit rule: %w", err)
	}

	sz, err := sizer.Encode(s.Sizer)
	if err != nil {
		return nil, fmt.Errorf("encode sizer: %w", err)
	}

	universe := make([]any, 0, len(s.Universe))
	for _, t := range s.Universe {
		universe = append(universe, t)
	}

	return map[string]any{
		"name":        s.Name,
		"description": s.Description,
		"entry_rules": entries,
		"exit_rule":   exit,
		"sizer":       sz,
		"universe":    universe,
	}, nil
}

func FromConfig(m map[string]any) (*Strategy, error) {
	name, _ := m["name"].(string)
	description, _ := m["description"].(string)

	rawEntries, ok := m["entry_rules"].([]any)
	if !ok {
		return nil, fmt.Errorf("missing entry_rules list")
	}
	entries := make([]rules.EntryRule, 0, len(rawEntries))
	for i, raw := range rawEntries {
		em, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entry rule %d is not a map", i)
		}
		rule, err := rules.DecodeEntry(em)
		if err != nil {
			return nil, fmt.Errorf("entry rule %d: %w", i, err)
		}
		entries = append(entries, rule)
	}

	exitMap, ok := m["exit_rule"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing exit_rule")
	}
	exit, err := rules.DecodeExit(exitMap)
	if err != nil {
		return nil, fmt.Errorf("exit rule: %w", err)
	}

	sizerMap, ok := m["sizer"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing sizer")
	}
	sz, err := sizer.Decode(sizerMap)
	if err != nil {
		return nil, fmt.Errorf("sizer: %w", err)
	}

	rawUniverse, ok := m["universe"].([]any)
	if !ok {
		return nil, fmt.Errorf("missing universe list")
	}
	universe := make([]string, 0, len(rawUniverse))
	for i, raw := range rawUniverse {
		ticker, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("universe entry %d is not a string", i)
		}
		universe = append(universe, ticker)
	}

	s := &Strategy{
		Name:        name,
		Description: description,
		EntryRules:  entries,
		ExitRule:    exit,
		Sizer:       sz,
		Universe:    universe,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// SaveYAML writes the strategy definition to a YAML file.
func (s *Strategy) SaveYAML(path string) error {
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal strategy: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadYAML reads a strategy definition from a YAML file.
func LoadYAML(path string) (*Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy file: %w", err)
	}

	var cfg map[string]any
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse strategy file: %w", err)
	}
	return FromConfig(cfg)
}
