package api

import (
	"errors"
	"net/http"

	"github.com/gentrack/gentrack/internal/service"
)

// notFoundMessage is the shared message for missing and non-numeric ids.
const notFoundMessage = "Alvo nao encontrado."

// writeServiceError maps a service failure to its HTTP response.
func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		WriteError(w, svcErr.HTTPStatus(), svcErr.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, "Erro interno.")
}

// HandleHealth answers liveness probes with a database round trip.
func HandleHealth(svc service.TargetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Health(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		WriteOK(w, http.StatusOK)
	}
}

// HandleListTargets returns every target with its latest check state.
func HandleListTargets(svc service.TargetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := svc.ListTargets(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, summaries)
	}
}

// HandleCreateTarget registers a target and runs its first check.
func HandleCreateTarget(svc service.TargetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.CreateTarget(r.Context(), decodeTargetPayload(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, summary)
	}
}

// HandleDeleteTarget removes a target and its history.
func HandleDeleteTarget(svc service.TargetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			WriteError(w, http.StatusNotFound, notFoundMessage)
			return
		}
		if err := svc.DeleteTarget(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		WriteOK(w, http.StatusOK)
	}
}

// HandleManualCheck probes the target now and returns the check record.
func HandleManualCheck(svc service.TargetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			WriteError(w, http.StatusNotFound, notFoundMessage)
			return
		}
		check, err := svc.RunManualCheck(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, check)
	}
}

// HandleHistory returns the target's recent checks, newest first.
func HandleHistory(svc service.TargetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			WriteError(w, http.StatusNotFound, notFoundMessage)
			return
		}
		limit, ok := parseLimit(r, service.DefaultHistoryLimit)
		if !ok {
			WriteError(w, http.StatusBadRequest, "Parametro 'limit' invalido.")
			return
		}
		rows, err := svc.History(r.Context(), id, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, rows)
	}
}

// HandleIncidents returns the target's downtime windows, newest first.
func HandleIncidents(svc service.TargetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			WriteError(w, http.StatusNotFound, notFoundMessage)
			return
		}
		limit, ok := parseLimit(r, service.DefaultIncidentLimit)
		if !ok {
			WriteError(w, http.StatusBadRequest, "Parametro 'limit' invalido.")
			return
		}
		rows, err := svc.Incidents(r.Context(), id, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, rows)
	}
}

// HandleReliability returns MTTR/MTBF analytics for one target.
func HandleReliability(svc service.TargetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			WriteError(w, http.StatusNotFound, notFoundMessage)
			return
		}
		summary, err := svc.Reliability(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, summary)
	}
}

// HandleDashboard returns the aggregate fleet view.
func HandleDashboard(svc service.TargetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dash, err := svc.Dashboard(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, dash)
	}
}
