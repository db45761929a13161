// Package lifecycle derives display state from server-owned booking and trip
// status: the "My Trips" buckets for passengers and drivers, the time window in
// which a published trip is shown as underway, and the review edit lock.
//
// Every function is a pure function of its arguments. The current time is
// always passed in, and malformed input is excluded or answered with false
// rather than reported as an error.
package lifecycle
