// Package earshot holds build metadata shared by the command and the
// MCP server.
package earshot

// Version is the current earshot release.
const Version = "0.2.0"
