package jobs

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-yard/internal/common"
)

// Handler exposes read access to generated statements.
type Handler struct {
	Statements StatementStore
}

// ListByClient returns a client's statements, newest period first.
func (h Handler) ListByClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "clientID")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid client id", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)

	list, err := h.Statements.ListByClient(r.Context(), clientID, perPage, common.Offset(page, perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list statements", nil)
		return
	}
	if list == nil {
		list = []Statement{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": list,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(list)},
	})
}
