package config

import (
	"slices"
	"sort"
)

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// AgentsChanged is true when any agent was added, removed or modified.
	// Agents are rebuilt only on restart.
	AgentsChanged bool
	AgentChanges  []AgentDiff

	// ServersChanged is true when mcp.servers differs in any way.
	ServersChanged bool
}

// AgentDiff describes what changed for a single agent between two configs.
type AgentDiff struct {
	Name                string
	InstructionsChanged bool
	ToolsChanged        bool
	BudgetTierChanged   bool
	Added               bool
	Removed             bool
}

// Diff compares old and new configs and returns what changed. Agent changes
// are sorted by name.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	oldAgents := make(map[string]*AgentConfig, len(old.Agents))
	for i := range old.Agents {
		oldAgents[old.Agents[i].Name] = &old.Agents[i]
	}
	newAgents := make(map[string]*AgentConfig, len(new.Agents))
	for i := range new.Agents {
		newAgents[new.Agents[i].Name] = &new.Agents[i]
	}

	for name, oldAgent := range oldAgents {
		newAgent, exists := newAgents[name]
		if !exists {
			d.AgentChanges = append(d.AgentChanges, AgentDiff{Name: name, Removed: true})
			continue
		}
		ad := diffAgent(name, oldAgent, newAgent)
		if ad.InstructionsChanged || ad.ToolsChanged || ad.BudgetTierChanged {
			d.AgentChanges = append(d.AgentChanges, ad)
		}
	}
	for name := range newAgents {
		if _, exists := oldAgents[name]; !exists {
			d.AgentChanges = append(d.AgentChanges, AgentDiff{Name: name, Added: true})
		}
	}
	sort.Slice(d.AgentChanges, func(i, j int) bool { return d.AgentChanges[i].Name < d.AgentChanges[j].Name })
	d.AgentsChanged = len(d.AgentChanges) > 0

	d.ServersChanged = !slices.EqualFunc(old.MCP.Servers, new.MCP.Servers, sameServer)
	return d
}

// diffAgent compares two agent configs with the same name.
func diffAgent(name string, old, new *AgentConfig) AgentDiff {
	ad := AgentDiff{Name: name}
	if old.Instructions != new.Instructions || old.Description != new.Description {
		ad.InstructionsChanged = true
	}
	if !slices.Equal(old.Servers, new.Servers) || !slices.Equal(old.Toolsets, new.Toolsets) ||
		!slices.Equal(old.Managed, new.Managed) {
		ad.ToolsChanged = true
	}
	if old.BudgetTier != new.BudgetTier {
		ad.BudgetTierChanged = true
	}
	return ad
}

func sameServer(a, b MCPServerConfig) bool {
	ac, bc := a.HostConfig(), b.HostConfig()
	if ac.Name != bc.Name || ac.Transport != bc.Transport || ac.Command != bc.Command ||
		ac.Dir != bc.Dir || ac.URL != bc.URL || ac.InheritEnv != bc.InheritEnv || ac.Token != bc.Token {
		return false
	}
	if !slices.Equal(ac.Args, bc.Args) || len(ac.Env) != len(bc.Env) {
		return false
	}
	for k, v := range ac.Env {
		if bv, ok := bc.Env[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
