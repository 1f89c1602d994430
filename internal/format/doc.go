// Package format renders values for human-readable CLI output.
//
// Times are shown relative to now for the last week ("5m ago",
// "yesterday") and as a date after that.
package format
