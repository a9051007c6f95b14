package state

// validTransitions contains the permitted moves between flow steps.
var validTransitions = map[StateCode][]StateCode{
	StateIdle: {
		StateSingleAwaitingTags,
		StateBatchCollecting,
		StateMassEditCollecting,
	},
	StateBatchCollecting: {
		StateBatchAwaitingTags,
	},
	StateBatchAwaitingTags: {
		StateBatchCollecting,
	},
	StateMassEditCollecting: {
		StateMassEditAwaitingRemove,
	},
	StateMassEditAwaitingRemove: {
		StateMassEditAwaitingAdd,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
// Every state may return to idle and every known state may stay where it is.
func IsTransitionAllowed(from, to StateCode) bool {
	if to == StateIdle {
		return true
	}
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
