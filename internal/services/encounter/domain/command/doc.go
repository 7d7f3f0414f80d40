// Package command defines the canonical command envelope and contract used across
// the encounter write path.
//
// Commands express intent from the gateway, MCP tools and scenario scripts. The
// registry normalizes them before the encounter decider sees them, so rules are
// only evaluated against validated, actor-aware inputs.
package command
