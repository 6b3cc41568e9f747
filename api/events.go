package api

import (
	"errors"
	"net/http"

	"github.com/xraph/filer"
	"github.com/xraph/filer/catalog"
	"github.com/xraph/filer/id"
	"github.com/xraph/filer/ledger"
)

type fileResponse struct {
	Event *ledger.Event `json:"event"`
	Error string        `json:"error,omitempty"`
}

// fileEvent builds and submits an event. A remote rejection or transport
// failure is still recorded, so the recorded event is returned with the error.
func (h *Handler) fileEvent(w http.ResponseWriter, r *http.Request) {
	var req fileRequest
	if msg := req.decode(r); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	evt, err := h.filer.File(r.Context(), req.EventType, req.Data)
	if err != nil {
		if evt == nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, statusFor(err), fileResponse{Event: evt, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, fileResponse{Event: evt})
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	opts := ledger.ListOpts{
		Status: ledger.Status(queryParam(r, "status")),
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}
	if t := queryParam(r, "event_type"); t != "" {
		opts.Type = catalog.Type(t)
	}
	if opts.Status != "" && !opts.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	events, err := h.filer.Events(r.Context(), opts)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	evtID, err := id.ParseFilingEventID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event ID")
		return
	}

	evt, getErr := h.filer.Event(r.Context(), evtID)
	if getErr != nil {
		if errors.Is(getErr, filer.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, getErr.Error())
		return
	}

	writeJSON(w, http.StatusOK, evt)
}

func (h *Handler) queryStatus(w http.ResponseWriter, r *http.Request) {
	res, err := h.filer.QueryStatus(r.Context(), r.PathValue("protocol"))
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
