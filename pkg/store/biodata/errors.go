package biodata

import "fmt"

// UpstreamError is a failed query: transport failure, timeout, non-2xx
// status, unreadable body or an explicit error payload.
type UpstreamError struct {
	ReportID string
	Status   int
	Message  string
	Timeout  bool
	Err      error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("upstream query %s timed out", e.ReportID)
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("upstream query %s failed with status %d: %s", e.ReportID, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("upstream query %s failed with status %d", e.ReportID, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("upstream query %s: %s: %v", e.ReportID, e.Message, e.Err)
	default:
		return fmt.Sprintf("upstream query %s: %s", e.ReportID, e.Message)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
