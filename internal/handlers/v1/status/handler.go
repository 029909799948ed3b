package status

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carson-networks/transaction-sync/internal/logging"
	"github.com/carson-networks/transaction-sync/internal/scheduler"
)

// jobStatusProvider reports the last tick of every scheduled job.
type jobStatusProvider interface {
	Status() []scheduler.JobStatus
}

type Response struct {
	Status  string                `json:"status"`
	Storage string                `json:"storage"`
	Jobs    []scheduler.JobStatus `json:"jobs"`
}

type Handler struct {
	Jobs    jobStatusProvider
	Storage string
}

func NewHandler(jobs jobStatusProvider, storageBackend string) Handler {
	return Handler{Jobs: jobs, Storage: storageBackend}
}

func (h *Handler) Handler(w http.ResponseWriter, req *http.Request, logData *logging.LogData) error {
	if req.Method != "GET" {
		w.WriteHeader(http.StatusBadRequest)
		return errors.New("status: method not GET")
	}

	resp := Response{Status: "ok", Storage: h.Storage, Jobs: []scheduler.JobStatus{}}
	if h.Jobs != nil {
		resp.Jobs = h.Jobs.Status()
	}
	logData.AddData("jobCount", len(resp.Jobs))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(resp)
}
