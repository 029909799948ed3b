package snapshot

import (
	"context"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/transaction-sync/internal/logging"
	"github.com/carson-networks/transaction-sync/internal/models"
)

// ListSnapshotsInput is the Huma input for listing the snapshots of a date.
type ListSnapshotsInput struct {
	Date string `query:"date" required:"true" doc:"Calendar date, YYYY-MM-DD"`
}

// ListSnapshotsOutput is the Huma output for both snapshot listings.
type ListSnapshotsOutput struct {
	Body struct {
		Snapshots []Snapshot `json:"snapshots" doc:"Cached pages ordered by date, then page"`
	}
}

// snapshotReader is the interface for reading cached snapshots.
type snapshotReader interface {
	SnapshotsByDate(ctx context.Context, date civil.Date) ([]*models.TransactionSnapshot, error)
	AllSnapshots(ctx context.Context) ([]*models.TransactionSnapshot, error)
}

// ListSnapshotsHandler handles GET /v1/snapshots and GET /v1/snapshots/all.
type ListSnapshotsHandler struct {
	QueryService snapshotReader
}

// NewListSnapshotsHandler creates a new ListSnapshotsHandler.
func NewListSnapshotsHandler(svc snapshotReader) *ListSnapshotsHandler {
	return &ListSnapshotsHandler{QueryService: svc}
}

// Register registers the snapshot endpoints with the Huma API.
func (h *ListSnapshotsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-snapshots-by-date",
		Method:      http.MethodGet,
		Path:        "/v1/snapshots",
		Summary:     "List snapshots for a date",
		Description: "Returns the cached gateway pages of one calendar date ordered by page.",
		Tags:        []string{"Snapshots"},
	}, h.handleByDate)

	huma.Register(api, huma.Operation{
		OperationID: "list-all-snapshots",
		Method:      http.MethodGet,
		Path:        "/v1/snapshots/all",
		Summary:     "List all snapshots",
		Description: "Returns every live cached gateway page ordered by date, then page.",
		Tags:        []string{"Snapshots"},
	}, h.handleAll)
}

func (h *ListSnapshotsHandler) handleByDate(ctx context.Context, input *ListSnapshotsInput) (*ListSnapshotsOutput, error) {
	date, err := civil.ParseDate(input.Date)
	if err != nil {
		return nil, huma.NewError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD", err)
	}

	stopTimer := logging.GetLogData(ctx).AddTiming("listSnapshotsMs")
	snapshots, err := h.QueryService.SnapshotsByDate(ctx, date)
	stopTimer()
	if err != nil {
		return nil, huma.NewError(http.StatusInternalServerError, "failed to list snapshots", err)
	}

	out := &ListSnapshotsOutput{}
	out.Body.Snapshots = toSnapshots(snapshots)
	return out, nil
}

func (h *ListSnapshotsHandler) handleAll(ctx context.Context, _ *struct{}) (*ListSnapshotsOutput, error) {
	stopTimer := logging.GetLogData(ctx).AddTiming("listSnapshotsMs")
	snapshots, err := h.QueryService.AllSnapshots(ctx)
	stopTimer()
	if err != nil {
		return nil, huma.NewError(http.StatusInternalServerError, "failed to list snapshots", err)
	}

	out := &ListSnapshotsOutput{}
	out.Body.Snapshots = toSnapshots(snapshots)
	return out, nil
}
