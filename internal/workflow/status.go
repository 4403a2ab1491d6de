package workflow

// NextStatus derives the header status for a STATUS_CHECK token from its
// answered-item count. It never moves backwards: a COMPLETE header stays
// COMPLETE and a PARTIAL header never returns to PENDING.
func NextStatus(current Status, responded, total int) Status {
	if current == StatusComplete {
		return StatusComplete
	}
	switch {
	case total > 0 && responded >= total:
		return StatusComplete
	case responded > 0:
		return StatusPartial
	default:
		return current
	}
}

// statusRank orders statuses along their lifecycle for monotonicity checks.
func statusRank(s Status) int {
	switch s {
	case StatusPending:
		return 0
	case StatusPartial:
		return 1
	case StatusComplete, StatusApproved, StatusRejected:
		return 2
	}
	return -1
}

// Regresses reports whether moving from -> to would go backwards.
func Regresses(from, to Status) bool {
	return statusRank(to) < statusRank(from)
}
