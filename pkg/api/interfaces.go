package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/newtron-network/netconsole/pkg/audit"
	"github.com/newtron-network/netconsole/pkg/reconcile"
	"github.com/newtron-network/netconsole/pkg/util"
)

// PlanResponse is the dry-run answer for an edit.
type PlanResponse struct {
	Device    string             `json:"device"`
	Interface string             `json:"interface"`
	Intents   []reconcile.Intent `json:"intents"`
	Count     int                `json:"count"`
}

// getInterface returns the observed state of one interface.
func (s *Server) getInterface(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	device, iface := vars["device"], util.NormalizeInterfaceName(vars["interface"])

	observed, err := s.source.Observe(r.Context(), device, iface)
	if err != nil {
		err = &reconcile.LoadError{NodeID: device, Interface: iface, Err: err}
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, observed)
}

// planInterface returns the intents an edit would apply without executing
// them.
func (s *Server) planInterface(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	device, iface := vars["device"], util.NormalizeInterfaceName(vars["interface"])
	start := time.Now()

	edit, ok := decodeEdit(w, r)
	if !ok {
		return
	}

	observed, err := s.source.Observe(r.Context(), device, iface)
	if err != nil {
		err = &reconcile.LoadError{NodeID: device, Interface: iface, Err: err}
		respondError(w, statusFor(err), err.Error())
		return
	}

	desired := reconcile.NewDesiredState(observed)
	if err := edit.Apply(desired); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	intents, err := reconcile.Plan(device, observed, desired)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.recordPlan(r, device, iface, intents, time.Since(start))
	respondJSON(w, http.StatusOK, PlanResponse{
		Device:    device,
		Interface: iface,
		Intents:   intents,
		Count:     len(intents),
	})
}

// reconcileInterface applies an edit. A failed run is answered with 502 and
// the partial result so the caller sees what was applied.
func (s *Server) reconcileInterface(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	device, iface := vars["device"], util.NormalizeInterfaceName(vars["interface"])

	edit, ok := decodeEdit(w, r)
	if !ok {
		return
	}

	result, err := s.reconciler.ReconcileFrom(r.Context(), s.source, device, iface, requestUser(r), edit.Apply)
	switch {
	case result != nil && !result.Succeeded():
		respondJSON(w, http.StatusBadGateway, result)
	case err != nil:
		respondError(w, statusFor(err), err.Error())
	default:
		respondJSON(w, http.StatusOK, result)
	}
}

// decodeEdit reads the request body. An empty body is an empty edit.
func decodeEdit(w http.ResponseWriter, r *http.Request) (*reconcile.Edit, bool) {
	edit := &reconcile.Edit{}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(edit); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return nil, false
	}
	return edit, true
}

func (s *Server) recordPlan(r *http.Request, device, iface string, intents []reconcile.Intent, d time.Duration) {
	if s.audit == nil {
		return
	}
	event := audit.NewEvent(requestUser(r), device, audit.OperationPlan).
		WithInterface(iface).
		WithIntents(intents).
		WithExecuteMode(false).
		WithDuration(d).
		WithClientIP(clientIP(r)).
		WithSuccess()
	if err := s.audit.Log(event); err != nil {
		util.WithInterface(device, iface).Warnf("Could not record plan: %v", err)
	}
}
