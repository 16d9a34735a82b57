// Package scheduling_tools exposes the scheduling core over MCP: booking,
// cancellation, availability checks and upcoming-meeting listing. Handlers
// translate the typed error taxonomy into actionable text for the
// conversational layer.
package scheduling_tools
