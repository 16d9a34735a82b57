// Package cmd implements the command-line interface for schedcore.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing the scheduling tools
//   - book: Book a meeting from a natural-language date/time
//   - cancel: Cancel a meeting by ID or attendee name + time
//   - availability: Check a slot or list free slots for a day
//   - auth: Run the OAuth flow for calendar access
//   - version: Display version information
package cmd
