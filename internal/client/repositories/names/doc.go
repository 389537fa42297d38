// Package names stores name-keyed reference lists (engineers and clients).
// Both tables share one shape, so one repository serves either, selected
// by table name.
package names
