package route_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mycal/src-server/model"
	"mycal/src-server/route"
	"mycal/src-server/schedule"
	"mycal/src-server/utils"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	t.Setenv("HOSTNAME", "")
	t.Setenv("TIMEZONE", "UTC")

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	bundb := bun.NewDB(db, sqlitedialect.New())
	if err := model.CreateSchema(bundb); err != nil {
		t.Fatal(err)
	}

	as := &utils.AppState{
		Config: utils.NewConfig(),
		RawDB:  db,
		BunDB:  bundb,
	}
	engine := schedule.NewEngine(bundb, time.UTC, nil)

	muxer := http.NewServeMux()
	route.Events(muxer, as, engine)
	route.Statistics(muxer, as, engine)
	return muxer
}

func do(t *testing.T, muxer *http.ServeMux, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	recorder := httptest.NewRecorder()
	muxer.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	decoded := make(map[string]any)
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("can't decode body %q: %v", recorder.Body.String(), err)
	}
	return decoded
}

func createPayload(name, date, from, to string) map[string]any {
	return map[string]any{
		"name": name,
		"date": date,
		"from": from,
		"to":   to,
		"location": map[string]any{
			"street":    "1 Abc St",
			"suburb":    "Sydney",
			"state":     "NSW",
			"post_code": 2000,
		},
		"description": "test event",
	}
}

func TestCreateEventRoute(t *testing.T) {
	muxer := newTestMux(t)

	recorder := do(t, muxer, http.MethodPost, "/events", createPayload("standup", "2024-03-04", "15:00:00", "17:00:00"))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if body["id"] == nil || body["last-update"] == nil {
		t.Error("expected id and last-update in the response", body)
	}
	links, ok := body["_links"].(map[string]any)
	if !ok || links["self"] == nil {
		t.Error("expected a self link", body)
	}

	// overlapping create is rejected with the blocking event named
	recorder = do(t, muxer, http.MethodPost, "/events", createPayload("clash", "2024-03-04", "16:00:00", "18:00:00"))
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an overlap, got %d", recorder.Code)
	}

	// malformed payload
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte("{not json")))
	recorder = httptest.NewRecorder()
	muxer.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a malformed payload, got %d", recorder.Code)
	}
}

func TestGetEventRoute(t *testing.T) {
	muxer := newTestMux(t)

	do(t, muxer, http.MethodPost, "/events", createPayload("first", "2024-03-04", "09:00:00", "10:00:00"))
	created := decodeBody(t, do(t, muxer, http.MethodPost, "/events", createPayload("second", "2024-03-04", "11:00:00", "12:00:00")))
	id := int64(created["id"].(float64))

	recorder := do(t, muxer, http.MethodGet, fmt.Sprintf("/events/%d", id), nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if body["name"] != "second" || body["from"] != "11:00:00" {
		t.Error("unexpected event body", body)
	}
	location, ok := body["location"].(map[string]any)
	if !ok || location["post_code"] != float64(2000) {
		t.Error("expected the nested location", body["location"])
	}
	links := body["_links"].(map[string]any)
	if links["previous"] == nil {
		t.Error("expected a previous link", links)
	}
	if links["next"] != nil {
		t.Error("expected no next link for the latest event", links)
	}

	if recorder := do(t, muxer, http.MethodGet, "/events/9999", nil); recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown id, got %d", recorder.Code)
	}
	if recorder := do(t, muxer, http.MethodGet, "/events/abc", nil); recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a non-integer id, got %d", recorder.Code)
	}
}

func TestUpdateEventRoute(t *testing.T) {
	muxer := newTestMux(t)
	created := decodeBody(t, do(t, muxer, http.MethodPost, "/events", createPayload("movable", "2024-03-04", "09:00:00", "10:00:00")))
	id := int64(created["id"].(float64))

	recorder := do(t, muxer, http.MethodPatch, fmt.Sprintf("/events/%d", id), map[string]any{"name": "renamed"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = do(t, muxer, http.MethodPatch, fmt.Sprintf("/events/%d", id), map[string]any{"colour": "red"})
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown field, got %d", recorder.Code)
	}

	recorder = do(t, muxer, http.MethodPatch, "/events/9999", map[string]any{"name": "ghost"})
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown id, got %d", recorder.Code)
	}
}

func TestDeleteEventRoute(t *testing.T) {
	muxer := newTestMux(t)
	created := decodeBody(t, do(t, muxer, http.MethodPost, "/events", createPayload("short lived", "2024-03-04", "09:00:00", "10:00:00")))
	id := int64(created["id"].(float64))

	recorder := do(t, muxer, http.MethodDelete, fmt.Sprintf("/events/%d", id), nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if recorder := do(t, muxer, http.MethodDelete, fmt.Sprintf("/events/%d", id), nil); recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a second delete, got %d", recorder.Code)
	}
}

func TestListEventsRoute(t *testing.T) {
	muxer := newTestMux(t)
	for day := 1; day <= 12; day++ {
		payload := createPayload(fmt.Sprintf("event %02d", day), fmt.Sprintf("2024-03-%02d", day), "09:00:00", "10:00:00")
		if recorder := do(t, muxer, http.MethodPost, "/events", payload); recorder.Code != http.StatusCreated {
			t.Fatalf("seed create failed: %d %s", recorder.Code, recorder.Body.String())
		}
	}

	recorder := do(t, muxer, http.MethodGet, "/events?order=%2Bid&page=3&size=5&filter=id,name", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	events := body["events"].([]any)
	if len(events) != 2 {
		t.Error("expected 2 events on page 3", len(events))
	}
	if body["page"] != float64(3) || body["page-size"] != float64(5) {
		t.Error("unexpected page metadata", body)
	}
	links := body["_links"].(map[string]any)
	if links["previous"] == nil {
		t.Error("expected a previous link on the last page")
	}
	if links["next"] != nil {
		t.Error("expected no next link on the last page")
	}
	view := events[0].(map[string]any)
	if len(view) != 2 {
		t.Error("expected exactly the projected fields", view)
	}

	if recorder := do(t, muxer, http.MethodGet, "/events?page=9", nil); recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404 beyond the last page, got %d", recorder.Code)
	}
	if recorder := do(t, muxer, http.MethodGet, "/events?order=*id", nil); recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad order, got %d", recorder.Code)
	}
	if recorder := do(t, muxer, http.MethodGet, "/events?filter=colour", nil); recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad filter, got %d", recorder.Code)
	}
	if recorder := do(t, muxer, http.MethodGet, "/events?page=abc", nil); recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a non-integer page, got %d", recorder.Code)
	}
}

func TestListEventsRouteEmpty(t *testing.T) {
	muxer := newTestMux(t)
	recorder := do(t, muxer, http.MethodGet, "/events", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected page 1 of an empty collection to be 200, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if events := body["events"].([]any); len(events) != 0 {
		t.Error("expected no events", events)
	}
}

func TestStatisticsRoute(t *testing.T) {
	muxer := newTestMux(t)
	do(t, muxer, http.MethodPost, "/events", createPayload("one", "2024-03-04", "09:00:00", "10:00:00"))
	do(t, muxer, http.MethodPost, "/events", createPayload("two", "2024-03-04", "11:00:00", "12:00:00"))

	recorder := do(t, muxer, http.MethodGet, "/events/statistics", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if body["total"] != float64(2) {
		t.Error("expected a total of 2", body)
	}
	perDay, ok := body["per-days"].(map[string]any)
	if !ok || perDay["2024-03-04"] != float64(2) {
		t.Error("unexpected per-day histogram", body["per-days"])
	}

	recorder = do(t, muxer, http.MethodGet, "/events/statistics?format=image", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for the chart, got %d", recorder.Code)
	}
	if contentType := recorder.Header().Get("Content-Type"); contentType != "image/png" {
		t.Error("expected a PNG response", contentType)
	}

	if recorder := do(t, muxer, http.MethodGet, "/events/statistics?format=xml", nil); recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown format, got %d", recorder.Code)
	}
}
