package config

import (
	"context"

	"github.com/pkg/errors"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentrelay/core"
)

// Profile customizes a deployment without code changes.
//
// Instructions are templates rendered per turn with .agent,
// .conversation_id and .date. Descriptions replace the roster entries the
// agents see of each other.
//
//	instructions:
//	  head: You are {{.agent}}, coordinator of the support team.
//	descriptions:
//	  analyst: Runs pandas over the exported sales data.
//	documents:
//	  - ./docs/handbook.pdf
type Profile struct {
	Instructions map[string]string `yaml:"instructions"`
	Descriptions map[string]string `yaml:"descriptions"`
	Documents    []string          `yaml:"documents"`
}

// LoadProfile reads a YAML profile from any location afs can resolve.
func LoadProfile(ctx context.Context, location string) (*Profile, error) {
	data, err := afs.New().DownloadWithURL(ctx, location)
	if err != nil {
		return nil, errors.Wrapf(err, "read profile %s", location)
	}

	return ParseProfile(data)
}

// ParseProfile decodes a YAML profile. Instruction keys must name agents.
func ParseProfile(data []byte) (*Profile, error) {
	p := &Profile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.Wrap(err, "decode profile")
	}

	for section, entries := range map[string]map[string]string{"instruction": p.Instructions, "description": p.Descriptions} {
		for key := range entries {
			if _, err := core.ParseAgentID(key); err != nil {
				return nil, errors.Wrapf(err, "profile %s %q", section, key)
			}
		}
	}

	return p, nil
}

// Instruction returns the instruction override for an agent.
func (p *Profile) Instruction(id core.AgentID) (string, bool) {
	if p == nil {
		return "", false
	}

	return lookup(p.Instructions, id)
}

// Description returns the roster description override for an agent.
func (p *Profile) Description(id core.AgentID) (string, bool) {
	if p == nil {
		return "", false
	}

	return lookup(p.Descriptions, id)
}

func lookup(entries map[string]string, id core.AgentID) (string, bool) {
	for key, text := range entries {
		if parsed, err := core.ParseAgentID(key); err == nil && parsed == id && text != "" {
			return text, true
		}
	}

	return "", false
}
