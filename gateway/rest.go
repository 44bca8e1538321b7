package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/c360/textpipe/errors"
	"github.com/c360/textpipe/health"
	"github.com/c360/textpipe/message"
	"github.com/c360/textpipe/operation"
)

// maxBatchSize caps one batch submit.
const maxBatchSize = 100

// restRequest is the body of a single REST process submit.
type restRequest struct {
	Text       string   `json:"text"`
	Operations []string `json:"operations"`
	UserID     string   `json:"user_id"`
	Priority   string   `json:"priority"`
}

type batchRequest struct {
	Requests []restRequest `json:"requests"`
}

// batchItem is one slot of a batch response: a result or an error, never both.
type batchItem struct {
	Result *message.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type batchResponse struct {
	Results []batchItem `json:"results"`
	Count   int         `json:"count"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errorMessage string) {
	writeJSON(w, status, map[string]string{"error": errorMessage})
}

// statusFor maps the error taxonomy to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case errors.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (g *Gateway) handleProcess(w http.ResponseWriter, r *http.Request) {
	var body restRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		g.trackError("rest_parse_error")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if body.Operations == nil {
		body.Operations = []string{operation.FixLayout}
	}

	request := message.NewRequest(body.Text, body.Operations, body.UserID,
		message.ParsePriority(body.Priority))
	result, err := g.processor.ProcessSync(r.Context(), request)
	if err != nil {
		g.trackError("rest_process_error")
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (g *Gateway) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		g.trackError("rest_parse_error")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "requests are required")
		return
	}
	if len(body.Requests) > maxBatchSize {
		g.trackError("batch_too_large")
		writeError(w, http.StatusBadRequest, errors.ErrBatchTooLarge.Error())
		return
	}

	items := make([]batchItem, 0, len(body.Requests))
	for _, entry := range body.Requests {
		if entry.Text == "" {
			items = append(items, batchItem{Error: "text is required"})
			continue
		}
		if entry.Operations == nil {
			entry.Operations = []string{operation.FixLayout}
		}
		request := message.NewRequest(entry.Text, entry.Operations, entry.UserID,
			message.ParsePriority(entry.Priority))
		result, err := g.processor.ProcessSync(r.Context(), request)
		if err != nil {
			items = append(items, batchItem{Error: err.Error()})
			continue
		}
		items = append(items, batchItem{Result: &result})
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: items, Count: len(items)})
}

func (g *Gateway) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.processor.Metrics())
}

func (g *Gateway) handleConnections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.processor.ConnectionInfo())
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if g.monitor == nil {
		writeJSON(w, http.StatusOK, health.Report{Status: health.StatusHealthy})
		return
	}
	report := g.monitor.Snapshot()
	status := http.StatusOK
	if report.Status != health.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
