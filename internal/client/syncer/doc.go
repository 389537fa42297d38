// Package syncer reconciles the local store with the remote document store.
//
// A Reconciler is generic over the row type and is instantiated once per
// entity with a Policy that supplies the key and field mapping. It has two
// directions:
//
//   - Push reads every dirty row and writes it to the remote store. A failed
//     row is logged and left dirty; the sweep moves on.
//   - Apply consumes remote change events from a subscription, one batch at a
//     time on a dedicated worker, and merges them into the local store with
//     soft-delete, dirty-wins and last-writer-wins rules.
//
// Push sweeps and apply tasks of one reconciler never overlap.
package syncer
