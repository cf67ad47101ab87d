// Package manager keeps the skills found under a skills directory loaded,
// current and reachable. It is structured into small files by concern:
//
//   - manager.go: core Manager type and simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: State, the Instance/Loader/Updater collaborators, records and snapshots.
//   - errors.go: error types and helpers (IsSkillNotFound, IsNotLoaded, IsConverseFailed).
//   - events.go: bus topics and the outbox used to publish after locks are released.
//   - store.go: record lookup and listing.
//   - reload.go: the per-directory reload decision and instance construction.
//   - unload.go: shutdown, leak checks and pruning of vanished skills.
//   - activation.go: Activate, Deactivate, DeactivateAllExcept.
//   - converse.go: routing of conversation requests to live instances.
//   - loop.go: Start/Stop and the periodic scan.
//   - handlers.go: bus control messages.
//   - watch.go: optional filesystem watcher that shortens the scan delay.
//   - status_report.go: Status/Skills reporting helpers.
//
// Locking: the store lock (Manager.mu) guards record fields and the records
// map and is never held while calling into an instance, the loader or the
// bus. Each record additionally carries an RWMutex; transitions take it for
// writing, conversations for reading. Lock order is record, then store.
package manager
