package route

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"mycal/src-server/metric"
	"mycal/src-server/schedule"
	"mycal/src-server/utils"
)

type link struct {
	Href string `json:"href"`
}

func eventHref(as *utils.AppState, id int64) link {
	return link{Href: fmt.Sprintf("%s/events/%d", as.Config.GetHostname(), id)}
}

func listHref(as *utils.AppState, order string, page, size int, filter string) link {
	return link{Href: fmt.Sprintf("%s/events?order=%s&page=%d&size=%d&filter=%s",
		as.Config.GetHostname(), order, page, size, filter)}
}

// Events registers the event CRUD and list endpoints.
func Events(muxer *http.ServeMux, as *utils.AppState, engine *schedule.Engine) {
	type MutationRespBody struct {
		ID         int64           `json:"id"`
		LastUpdate string          `json:"last-update"`
		Links      map[string]link `json:"_links"`
	}

	// create a new event; overlapping another event on the same date is a 400
	muxer.HandleFunc("POST /events", func(w http.ResponseWriter, r *http.Request) {
		var reqBody schedule.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		event, err := engine.Create(r.Context(), reqBody)
		if err != nil {
			respondScheduleError(w, err)
			return
		}
		metric.EventsCreated.Inc()

		writeJSON(w, http.StatusCreated, MutationRespBody{
			ID:         event.ID,
			LastUpdate: event.LastUpdate,
			Links:      map[string]link{"self": eventHref(as, event.ID)},
		})
	})

	// get one event, with links to its chronological neighbors
	muxer.HandleFunc("GET /events/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "event id must be an integer")
			return
		}

		event, err := engine.Get(r.Context(), id)
		if err != nil {
			respondScheduleError(w, err)
			return
		}
		previous, next, err := engine.Neighbors(r.Context(), event)
		if err != nil {
			respondScheduleError(w, err)
			return
		}

		links := map[string]link{"self": eventHref(as, event.ID)}
		if previous != nil {
			links["previous"] = eventHref(as, previous.ID)
		}
		if next != nil {
			links["next"] = eventHref(as, next.ID)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":          event.ID,
			"last-update": event.LastUpdate,
			"name":        event.Name,
			"date":        event.Date,
			"from":        event.StartTime,
			"to":          event.EndTime,
			"location": schedule.Location{
				Street:   event.Street,
				Suburb:   event.Suburb,
				State:    event.State,
				PostCode: event.PostCode,
			},
			"description": event.Description,
			"_links":      links,
		})
	})

	// partial update; unknown payload keys are rejected
	muxer.HandleFunc("PATCH /events/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "event id must be an integer")
			return
		}

		fields := make(map[string]any)
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		event, err := engine.Update(r.Context(), id, fields)
		if err != nil {
			respondScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, MutationRespBody{
			ID:         event.ID,
			LastUpdate: event.LastUpdate,
			Links:      map[string]link{"self": eventHref(as, event.ID)},
		})
	})

	// hard delete
	muxer.HandleFunc("DELETE /events/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "event id must be an integer")
			return
		}

		if err := engine.Delete(r.Context(), id); err != nil {
			respondScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message": fmt.Sprintf("The event with id %d was removed from the database!", id),
			"id":      id,
		})
	})

	type ListRespBody struct {
		Page     int                  `json:"page"`
		PageSize int                  `json:"page-size"`
		Events   []schedule.EventView `json:"events"`
		Links    map[string]link      `json:"_links"`
	}

	// list with multi-key sort, pagination and field projection
	muxer.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		order := query.Get("order")
		if order == "" {
			order = "+id"
		}
		filter := query.Get("filter")
		if filter == "" {
			filter = "id,name"
		}
		page, err := positiveIntParam(query.Get("page"), 1)
		if err != nil {
			writeError(w, http.StatusBadRequest, "page must be an integer")
			return
		}
		size, err := positiveIntParam(query.Get("size"), 10)
		if err != nil {
			writeError(w, http.StatusBadRequest, "size must be an integer")
			return
		}

		result, err := engine.List(r.Context(), schedule.ListRequest{
			Order:  order,
			Filter: filter,
			Page:   page,
			Size:   size,
		})
		if err != nil {
			respondScheduleError(w, err)
			return
		}

		links := map[string]link{
			"self": listHref(as, order, result.Page, result.Size, filter),
		}
		if result.HasPrevious {
			links["previous"] = listHref(as, order, result.Page-1, result.Size, filter)
		}
		if result.HasNext {
			links["next"] = listHref(as, order, result.Page+1, result.Size, filter)
		}

		writeJSON(w, http.StatusOK, ListRespBody{
			Page:     result.Page,
			PageSize: result.Size,
			Events:   result.Events,
			Links:    links,
		})
	})
}

// positiveIntParam parses an optional integer query parameter. Range
// checking (> 0) belongs to the engine; this only rejects non-integers.
func positiveIntParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
