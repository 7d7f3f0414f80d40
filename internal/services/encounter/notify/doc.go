// Package notify turns committed encounter events into notifications and
// fans them out to subscribers after the commit.
//
// Notifications are observations. Nothing in the write path waits on a
// subscriber, and a subscriber that misses a notification can rebuild its
// view from the encounter projection.
package notify
