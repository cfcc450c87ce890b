package domain

// SyncStatus tracks where an entity sits in the local/remote reconciliation
// lifecycle. Every locally persisted entity carries one.
type SyncStatus string

const (
	// SyncStatusSynced means the local copy matches the last known server state.
	SyncStatusSynced SyncStatus = "SYNCED"
	// SyncStatusPendingCreate means the entity exists only locally and has not
	// been created on the server yet. Its ID is still a local UUID.
	SyncStatusPendingCreate SyncStatus = "PENDING_CREATE"
	// SyncStatusPendingUpdate means the entity exists remotely but carries
	// local edits that have not been pushed.
	SyncStatusPendingUpdate SyncStatus = "PENDING_UPDATE"
	// SyncStatusPendingDelete means the entity is marked for remote deletion
	// but is still physically present locally.
	SyncStatusPendingDelete SyncStatus = "PENDING_DELETE"
)

// PendingStatuses lists every status that still needs a remote push,
// in the order the sync engine enumerates them.
func PendingStatuses() []SyncStatus {
	return []SyncStatus{SyncStatusPendingCreate, SyncStatusPendingUpdate, SyncStatusPendingDelete}
}

// Pending reports whether the entity still has outstanding work to sync.
func (s SyncStatus) Pending() bool {
	switch s {
	case SyncStatusPendingCreate, SyncStatusPendingUpdate, SyncStatusPendingDelete:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s SyncStatus) Valid() bool {
	return s == SyncStatusSynced || s.Pending()
}
