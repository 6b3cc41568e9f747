package api

import (
	"net/http"

	"github.com/xraph/filer/catalog"
	"github.com/xraph/filer/payload"
)

type fileRequest struct {
	EventType catalog.Type `json:"event_type"`
	Data      payload.Data `json:"data"`
}

func (req *fileRequest) decode(r *http.Request) string {
	if err := decodeJSON(r, req); err != nil {
		return "invalid request body"
	}
	if req.EventType == "" {
		return "event_type is required"
	}
	if req.Data == nil {
		return "data is required"
	}
	return ""
}

func (h *Handler) listCatalog(w http.ResponseWriter, r *http.Request) {
	defs := h.filer.Catalog().List(catalog.ListOpts{
		Group:   queryParam(r, "group"),
		Pattern: queryParam(r, "pattern"),
	})
	writeJSON(w, http.StatusOK, defs)
}

func (h *Handler) getDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := h.filer.Catalog().Lookup(catalog.Type(r.PathValue("type")))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, def)
}

type previewResponse struct {
	*payload.Payload
	Size int `json:"size"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req fileRequest
	if msg := req.decode(r); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.filer.Preview(req.EventType, req.Data)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{Payload: p, Size: p.Size()})
}
