package domain

import "encoding/json"

// ProductResult represents one site's best-matching offer for a query.
// Either Error is set or the remaining fields are a best-effort snapshot;
// an empty result means the site had no match.
type ProductResult struct {
	Title  string   `json:"title,omitempty"`
	Price  *float64 `json:"price,omitempty"`
	Rating string   `json:"rating,omitempty"`
	URL    string   `json:"url,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Failed reports whether the result carries an error instead of a product
func (r ProductResult) Failed() bool {
	return r.Error != ""
}

// HasPrice reports whether the result contributes to the market price.
// A zero or negative price is treated as unpriced.
func (r ProductResult) HasPrice() bool {
	return r.Error == "" && r.Price != nil && *r.Price > 0
}

// ErrorResult wraps an error message into a failed ProductResult
func ErrorResult(msg string) ProductResult {
	return ProductResult{Error: msg}
}

// TaggedResult is a settled scrape outcome annotated with its originating site
type TaggedResult struct {
	Site     string        `json:"site"`
	Result   ProductResult `json:"result"`
	Duration float64       `json:"duration"` // seconds
}

// DoneSite marks the terminal event of a streamed comparison
const DoneSite = "_done_"

// StreamEvent is one record of the immediate-tier stream. Result events carry
// Site, Result and TimeTaken; the terminal event carries TotalTime and WorthIt.
type StreamEvent struct {
	Site      string
	Result    *ProductResult
	TimeTaken float64
	TotalTime float64
	WorthIt   *ScoreResult
}

type resultFrame struct {
	Site      string        `json:"site"`
	Result    ProductResult `json:"result"`
	TimeTaken float64       `json:"time_taken"`
}

type doneFrame struct {
	Site      string       `json:"site"`
	TotalTime float64      `json:"total_time"`
	WorthIt   *ScoreResult `json:"worthit"`
}

// IsDone reports whether the event is the terminal sentinel
func (e StreamEvent) IsDone() bool {
	return e.Site == DoneSite
}

// MarshalJSON writes {site, result, time_taken} for result events and
// {site, total_time, worthit} for the terminal event. Every key is always
// present, even when a duration rounds to zero.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	if e.IsDone() {
		worthIt := e.WorthIt
		if worthIt == nil {
			worthIt = &ScoreResult{}
		}
		return json.Marshal(doneFrame{Site: e.Site, TotalTime: e.TotalTime, WorthIt: worthIt})
	}
	var res ProductResult
	if e.Result != nil {
		res = *e.Result
	}
	return json.Marshal(resultFrame{Site: e.Site, Result: res, TimeTaken: e.TimeTaken})
}

// ScoreResult is the affordability verdict for a user's price
type ScoreResult struct {
	Score    *float64 `json:"score"`
	AvgPrice *float64 `json:"avg_price"`
	Message  string   `json:"message"`
}

// MoreResponse is the payload of a background-tier poll
type MoreResponse struct {
	Query               string                   `json:"query"`
	Status              string                   `json:"status,omitempty"` // "loading" while the job runs
	Results             map[string]ProductResult `json:"results,omitempty"`
	WorthIt             ScoreResult              `json:"worthit"`
	TimeTakenBackground *float64                 `json:"time_taken_background,omitempty"`
}

// StatusLoading is reported while background scrapes are still running
const StatusLoading = "loading"

// Diagnostics is a snapshot of in-flight orchestration state
type Diagnostics struct {
	RunningTasks map[string]string `json:"runningTasks"` // task id -> site
	Jobs         int               `json:"jobs"`
}
