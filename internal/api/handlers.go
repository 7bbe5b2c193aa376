package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ticktock/internal/apperr"
	"github.com/starford/ticktock/internal/checksum"
	"github.com/starford/ticktock/internal/models"
	"github.com/starford/ticktock/internal/timesheet"
)

// Handler holds API route handlers.
type Handler struct {
	svc *timesheet.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *timesheet.Service) *Handler {
	return &Handler{svc: svc}
}

// ParseMessage handles POST /api/messages/parse.
//
//	@Summary		Parse a work message into draft time entries
//	@Tags			messages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ParseMessageRequest	true	"Message to parse"
//	@Success		200		{object}	ParseResult
//	@Failure		400		{object}	ParseResult
//	@Failure		500		{object}	ParseResult
//	@Security		BearerAuth
//	@Router			/messages/parse [post]
func (h *Handler) ParseMessage(w http.ResponseWriter, r *http.Request) {
	var req ParseMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, failedParse("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, failedParse(err.Error()))
		return
	}

	res, err := h.svc.ParseMessage(r.Context(), req.Message, req.Date)
	if err != nil {
		slog.Error("parse message failed", slog.String("date", req.Date), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, failedParse("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RefineEntry handles POST /api/entries/{id}/refine.
//
//	@Summary		Replace an entry with a refined re-parse of its message
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Entry id"
//	@Param			body	body		RefineEntryRequest	true	"Refinement"
//	@Success		200		{object}	RefineResult
//	@Failure		400		{object}	ParseResult
//	@Failure		404		{object}	ParseResult
//	@Failure		500		{object}	ParseResult
//	@Security		BearerAuth
//	@Router			/entries/{id}/refine [post]
func (h *Handler) RefineEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req RefineEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, failedParse("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, failedParse(err.Error()))
		return
	}

	res, err := h.svc.RefineEntry(r.Context(), id, req.RefinementRequest, req.OriginalMessage, req.Date)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, failedParse(apperr.ErrNotFound.Error()))
		} else {
			slog.Error("refine entry failed", slog.String("entry_id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, failedParse("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ShipEntries handles POST /api/entries/ship.
//
//	@Summary		Mark draft entries of a day as logged
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ShipEntriesRequest	true	"Entries to ship"
//	@Success		200		{object}	ShipResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/ship [post]
func (h *Handler) ShipEntries(w http.ResponseWriter, r *http.Request) {
	var req ShipEntriesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res, err := h.svc.ShipEntries(r.Context(), req.EntryIDs, req.Date)
	if err != nil {
		slog.Error("ship entries failed", slog.String("date", req.Date), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DayEntries handles GET /api/days/{date}.
//
//	@Summary		List the entries of a day
//	@Tags			days
//	@Produce		json
//	@Param			date			path		string	true	"Day (YYYY-MM-DD)"
//	@Param			If-None-Match	header		string	false	"ETag of a cached response"
//	@Success		200				{object}	DayEntries
//	@Success		304				"Not modified"
//	@Failure		400				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days/{date} [get]
func (h *Handler) DayEntries(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if err := validation.Validate(date, validation.Required, validation.Date(models.DateLayout)); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("date: "+err.Error()))
		return
	}

	day, err := h.svc.DayEntries(r.Context(), date)
	if err != nil {
		slog.Error("get day entries failed", slog.String("date", date), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	etag, err := checksum.ETag(day)
	if err == nil {
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	writeJSON(w, http.StatusOK, day)
}

// CalendarMonth handles GET /api/calendar/{month}.
//
//	@Summary		Summarize every day of a month
//	@Tags			calendar
//	@Produce		json
//	@Param			month	path		string	true	"Month (YYYY-MM)"
//	@Success		200		{object}	CalendarMonth
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar/{month} [get]
func (h *Handler) CalendarMonth(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	cal, err := h.svc.CalendarMonth(r.Context(), month)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		} else {
			slog.Error("calendar month failed", slog.String("month", month), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, cal)
}
