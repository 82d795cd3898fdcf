package route

import (
	"errors"
	"net/http"
	"strings"

	"mycal/src-server/chart"
	"mycal/src-server/schedule"
	"mycal/src-server/utils"
)

// Statistics registers the occupancy statistics endpoint. format=json
// returns the aggregate counts, format=image renders the per-day histogram
// as a PNG bar chart.
func Statistics(muxer *http.ServeMux, as *utils.AppState, engine *schedule.Engine) {
	muxer.HandleFunc("GET /events/statistics", func(w http.ResponseWriter, r *http.Request) {
		format := strings.ToLower(r.URL.Query().Get("format"))
		if format == "" {
			format = "json"
		}

		stats, err := engine.Statistics(r.Context())
		if err != nil {
			respondScheduleError(w, err)
			return
		}

		switch format {
		case "json":
			writeJSON(w, http.StatusOK, stats)
		case "image":
			png, err := chart.Bar(stats.PerDay)
			if err != nil {
				if errors.Is(err, chart.ErrNoData) {
					writeError(w, http.StatusNotFound, "no events to chart")
					return
				}
				writeError(w, http.StatusInternalServerError, "can't render chart")
				return
			}
			w.Header().Set("Content-Type", "image/png")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(png)
		default:
			writeError(w, http.StatusBadRequest, "format must be json or image")
		}
	})
}
