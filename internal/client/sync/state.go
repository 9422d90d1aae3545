package sync

// State состояние синхронизации проекта
type State int

const (
	StateIdle State = iota
	StateBeginning
	StateSyncingEntities
	StateConflictPending
	StateFinalizing
	StateCompleted
	StateFailed
	StateCancelled
)

var stateNames = map[State]string{
	StateIdle:            "idle",
	StateBeginning:       "beginning",
	StateSyncingEntities: "syncing_entities",
	StateConflictPending: "conflict_pending",
	StateFinalizing:      "finalizing",
	StateCompleted:       "completed",
	StateFailed:          "failed",
	StateCancelled:       "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the synchronization is over.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}
