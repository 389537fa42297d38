// Package models defines the records kept in the local store, the remote
// document shape and the small amount of domain arithmetic shared by both.
package models

import "time"

// TimestampLayout matches the ISO-8601 form the mobile app writes
// (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// SyncMeta is carried by every synced row.
type SyncMeta struct {
	LocalID   int64
	RemoteID  string // empty until the first successful push or link
	Deleted   bool
	Dirty     bool // stored as synced = 0
	UpdatedAt string
}

// Timestamp formats t in TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts any RFC 3339 timestamp, with or without fraction.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// RemoteIsNewer decides last-writer-wins between a remote and a local
// updatedAt. An unparseable value on either side lets the remote win.
func RemoteIsNewer(remote, local string) bool {
	r, err := ParseTimestamp(remote)
	if err != nil {
		return true
	}
	l, err := ParseTimestamp(local)
	if err != nil {
		return true
	}
	return r.After(l)
}
