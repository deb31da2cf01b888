package models

// OutcomeStatus is the per-URL result reported back to the caller of a batch.
type OutcomeStatus string

const (
	OutcomeInvalid  OutcomeStatus = "invalid"
	OutcomeExists   OutcomeStatus = "exists"
	OutcomeInserted OutcomeStatus = "inserted"
	OutcomeError    OutcomeStatus = "error"
)

// Stage is the terminal state a per-URL pipeline reached.
type Stage string

const (
	StageInvalid      Stage = "invalid"
	StageSkipped      Stage = "skipped"
	StageFetchFailed  Stage = "fetch_failed"
	StageStored       Stage = "stored"
	StageStoreFailed  Stage = "store_failed"
	StageLookupFailed Stage = "lookup_failed"
)

// Outcome is the record surfaced for each URL of a batch.
type Outcome struct {
	URL       string        `json:"url"`
	Status    OutcomeStatus `json:"status"`
	Error     *string       `json:"error"`
	Stage     Stage         `json:"-"`
	ListingID int64         `json:"listing_id,omitempty"`
}

// BatchSummary holds counts computed over one batch of outcomes.
type BatchSummary struct {
	Total    int
	Inserted int
	Exists   int
	Invalid  int
	Errors   int
	// FailedURLs lists error outcomes in input order.
	FailedURLs []string
}
