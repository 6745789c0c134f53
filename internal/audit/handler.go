package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Lister is the read side of the audit store.
type Lister interface {
	List(ctx context.Context, f Filter) ([]Entry, error)
}

// QueryHandler lists audit entries. Access to the log page is checked by
// the router before the request gets here.
type QueryHandler struct {
	Store  Lister
	Logger zerolog.Logger
}

func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	filter := Filter{}
	filter.Actor = q.Get("actor")
	filter.Action = Action(q.Get("action"))
	filter.Outcome = Outcome(q.Get("outcome"))
	if sinceStr := q.Get("since"); sinceStr != "" {
		if t, err := time.Parse(time.RFC3339, sinceStr); err == nil {
			filter.Since = t
		}
	}
	if untilStr := q.Get("until"); untilStr != "" {
		if t, err := time.Parse(time.RFC3339, untilStr); err == nil {
			filter.Until = t
		}
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = l
		}
	}

	entries, err := h.Store.List(r.Context(), filter)
	if err != nil {
		h.Logger.Error().Err(err).Msg("list audit entries")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}
