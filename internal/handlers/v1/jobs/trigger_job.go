package jobs

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/transaction-sync/internal/scheduler"
)

// TriggerJobInput is the Huma input for starting a job tick by hand.
type TriggerJobInput struct {
	Name string `path:"name" doc:"Job name: sync, get or purge"`
}

// TriggerJobOutput is the Huma output for TriggerJob.
type TriggerJobOutput struct {
	Body struct {
		Job    string `json:"job"`
		Status string `json:"status" doc:"Always accepted; poll /status for the outcome"`
	}
}

type jobTrigger interface {
	TriggerAsync(name string) error
}

// TriggerJobHandler handles POST /v1/jobs/{name}/trigger.
type TriggerJobHandler struct {
	Scheduler jobTrigger
}

func NewTriggerJobHandler(trigger jobTrigger) *TriggerJobHandler {
	return &TriggerJobHandler{Scheduler: trigger}
}

// Register registers the trigger endpoint with the Huma API.
func (h *TriggerJobHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "trigger-job",
		Method:        http.MethodPost,
		Path:          "/v1/jobs/{name}/trigger",
		Summary:       "Run a job now",
		Description:   "Starts one tick of the job on this replica. The tick still needs the job's lease and is skipped while another tick of the same job runs here.",
		Tags:          []string{"Jobs"},
		DefaultStatus: http.StatusAccepted,
	}, h.handle)
}

func (h *TriggerJobHandler) handle(ctx context.Context, input *TriggerJobInput) (*TriggerJobOutput, error) {
	err := h.Scheduler.TriggerAsync(input.Name)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		return nil, huma.NewError(http.StatusNotFound, "unknown job "+input.Name)
	case errors.Is(err, scheduler.ErrStopped):
		return nil, huma.NewError(http.StatusServiceUnavailable, "scheduler is shutting down")
	case err != nil:
		return nil, huma.NewError(http.StatusInternalServerError, "failed to trigger job", err)
	}

	out := &TriggerJobOutput{}
	out.Body.Job = input.Name
	out.Body.Status = "accepted"
	return out, nil
}
