package api

type Report struct {
	ID          string   `json:"id"`
	Procedure   string   `json:"procedure"`
	Description string   `json:"description"`
	Filters     []string `json:"filters"`
}

type Profile struct {
	Name string `json:"name"`
}

type MetricRecord struct {
	Label           string  `json:"label"`
	Start           string  `json:"start"`
	End             string  `json:"end"`
	Amount          float64 `json:"amount"`
	FormattedAmount string  `json:"formatted_amount"`
	Count           int64   `json:"count"`
	SharePercent    float64 `json:"share_percent"`
	RunningTotal    float64 `json:"running_total"`
	Failed          bool    `json:"failed,omitempty"`
	Error           string  `json:"error,omitempty"`
}

type Series struct {
	Report                 string         `json:"report"`
	From                   string         `json:"from"`
	To                     string         `json:"to"`
	Granularity            string         `json:"granularity"`
	Months                 int            `json:"months,omitempty"`
	Records                []MetricRecord `json:"records"`
	Total                  float64        `json:"total"`
	FormattedTotal         string         `json:"formatted_total"`
	TotalCount             int64          `json:"total_count"`
	Average                float64        `json:"average"`
	FormattedAverage       string         `json:"formatted_average"`
	AverageTicket          float64        `json:"average_ticket"`
	FormattedAverageTicket string         `json:"formatted_average_ticket"`
	// Failures counts records whose sub-query could not be fetched; their
	// amounts are zero rather than measured.
	Failures int  `json:"failures"`
	Complete bool `json:"complete"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
