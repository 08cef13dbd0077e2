package core

// CredentialSet is the broker credential pair plus the refresh material
// needed to mint a replacement access token. Exactly one live instance
// exists per process, owned by the credential store; worker code only
// ever sees read-only snapshots.
type CredentialSet struct {
	ClientID     string `json:"client_id"`
	AppSecret    string `json:"app_secret"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CanRequest reports whether the set carries enough material to build an
// authorized history request.
func (c CredentialSet) CanRequest() bool {
	return c.ClientID != "" && c.AccessToken != ""
}

// CanRefresh reports whether the set carries enough material for the
// refresh-token exchange.
func (c CredentialSet) CanRefresh() bool {
	return c.ClientID != "" && c.AppSecret != "" && c.RefreshToken != ""
}

// HistoryParams are the query parameters of one candle history request.
type HistoryParams struct {
	Symbol     string `json:"symbol"`
	Resolution string `json:"resolution"`
	RangeFrom  string `json:"range_from"`
	RangeTo    string `json:"range_to"`
}

// IngestResult is the terminal outcome for one symbol in one run. It is
// produced exactly once per symbol and never mutated afterwards.
type IngestResult struct {
	Symbol    string
	Succeeded bool
	Attempts  int
	Status    int    // last HTTP status seen, 0 when none
	Note      string // failure note, empty on success
}

// RunSummary aggregates all per-symbol results of one ingest run.
type RunSummary struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// HasFailures reports whether the run should be surfaced as failed to
// the caller even though it completed.
func (s RunSummary) HasFailures() bool {
	return s.Failed > 0
}
