// Package expenses provides the SQLite repository for expense records,
// covering both the user-facing reads and writes and the sync hooks the
// reconciler uses.
package expenses
