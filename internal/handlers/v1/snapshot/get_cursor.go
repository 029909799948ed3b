package snapshot

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/transaction-sync/internal/models"
)

// GetCursorOutput is the Huma output for reading the sync cursor.
type GetCursorOutput struct {
	Body struct {
		ActualPage  int    `json:"actualPage" doc:"Next page sync will fetch"`
		CreatedDate string `json:"createdDate" doc:"Date sync is working through, YYYY-MM-DD"`
	}
}

// cursorReader is the interface for reading the sync cursor.
type cursorReader interface {
	CurrentCursor(ctx context.Context) (*models.Cursor, error)
}

// GetCursorHandler handles GET /v1/cursor.
type GetCursorHandler struct {
	QueryService cursorReader
}

// NewGetCursorHandler creates a new GetCursorHandler.
func NewGetCursorHandler(svc cursorReader) *GetCursorHandler {
	return &GetCursorHandler{QueryService: svc}
}

// Register registers the cursor endpoint with the Huma API.
func (h *GetCursorHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-cursor",
		Method:      http.MethodGet,
		Path:        "/v1/cursor",
		Summary:     "Get the sync cursor",
		Description: "Returns the page and date the sync job will fetch next.",
		Tags:        []string{"Cursor"},
	}, h.handle)
}

func (h *GetCursorHandler) handle(ctx context.Context, _ *struct{}) (*GetCursorOutput, error) {
	cursor, err := h.QueryService.CurrentCursor(ctx)
	if err != nil {
		return nil, huma.NewError(http.StatusInternalServerError, "failed to read cursor", err)
	}
	if cursor == nil {
		return nil, huma.NewError(http.StatusNotFound, "no cursor has been persisted yet")
	}

	out := &GetCursorOutput{}
	out.Body.ActualPage = cursor.ActualPage
	out.Body.CreatedDate = cursor.CreatedDate.String()
	return out, nil
}
