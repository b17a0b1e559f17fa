package model

// Outcome classifies a single pass of the refresh loop.
type Outcome string

const (
	OutcomeOK         Outcome = "OK"
	OutcomeFetchError Outcome = "FETCH_ERROR"
	OutcomeFatal      Outcome = "FATAL"
)

// RefreshKind names a panel operation recorded in the refresh journal.
type RefreshKind string

const (
	RefreshInit       RefreshKind = "INIT"
	RefreshClear      RefreshKind = "CLEAR"
	RefreshFrame      RefreshKind = "FRAME"
	RefreshGhostCycle RefreshKind = "GHOST_CYCLE"
	RefreshBlank      RefreshKind = "BLANK"
	RefreshSleep      RefreshKind = "SLEEP"
)
