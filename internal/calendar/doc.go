// Package calendar provides the Google Calendar backend for the scheduling core.
//
// The client answers free/busy queries for the configured scheduling calendar
// and performs the event create/delete mutations behind bookings and
// cancellations, attaching a Google Meet conference when requested.
//
// Backend failures are always reported as errors distinct from empty results;
// the availability engine relies on this to avoid reading an outage as a free
// calendar.
package calendar
