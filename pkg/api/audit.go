package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/newtron-network/netconsole/pkg/audit"
	"github.com/newtron-network/netconsole/pkg/util"
)

const defaultAuditLimit = 100

// listAudit returns recorded events, newest first.
func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		respondError(w, http.StatusServiceUnavailable, "audit log not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Device:      q.Get("device"),
		User:        q.Get("user"),
		Operation:   q.Get("operation"),
		RunID:       q.Get("run_id"),
		FailureOnly: q.Get("failures") == "true",
		Newest:      true,
		Limit:       defaultAuditLimit,
	}
	if iface := q.Get("interface"); iface != "" {
		filter.Interface = util.NormalizeInterfaceName(iface)
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}
	if v := q.Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "since must be a duration such as 24h")
			return
		}
		filter.StartTime = time.Now().Add(-d)
	}

	events, err := s.audit.Query(filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []*audit.Event{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
