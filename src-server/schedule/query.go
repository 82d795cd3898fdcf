package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mycal/src-server/model"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ListRequest carries the raw query parameters of a list call. Order and
// Filter are comma-separated with no spaces, exactly as they arrive on the
// query string.
type ListRequest struct {
	Order  string
	Filter string
	Page   int
	Size   int
}

// EventView is one projected event: it holds exactly the keys the filter
// asked for, nothing else.
type EventView map[string]any

type Page struct {
	Page        int
	Size        int
	TotalPages  int
	Events      []EventView
	HasPrevious bool
	HasNext     bool
}

type sortKey struct {
	field string
	desc  bool
}

// List sorts the full event set by the requested keys, slices out one page
// and projects each event down to the requested fields. An empty collection
// at page 1 is a valid empty page, not an error; any later page is out of
// range.
func (e *Engine) List(ctx context.Context, req ListRequest) (*Page, error) {
	if req.Size <= 0 {
		return nil, &InvalidParameterError{Param: "size", Reason: "cannot show zero or a negative number of events per page"}
	}
	if req.Page <= 0 {
		return nil, &InvalidParameterError{Param: "page", Reason: "zero or negative page numbers do not exist"}
	}
	keys, err := parseOrder(req.Order)
	if err != nil {
		return nil, err
	}
	fields, err := parseFilter(req.Filter)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	events, err := model.AllEvents(ctx, e.db)
	if err != nil {
		return nil, err
	}
	e.reportRead(start)

	sortEvents(events, keys)

	// (len-1)/size + 1 instead of (len+size-1)/size: the latter overflows
	// when size is near the int maximum, which the query string allows
	totalPages := 0
	if len(events) > 0 {
		totalPages = (len(events)-1)/req.Size + 1
	}

	// page 1 of an empty collection is a valid empty page; any other page
	// past the end does not exist
	if req.Page > totalPages && req.Page > 1 {
		return nil, ErrPageOutOfRange
	}

	// past the guard above, page >= 2 implies size < len(events), so
	// neither the product nor the sum can overflow
	lo := (req.Page - 1) * req.Size
	hi := lo + req.Size
	if lo > len(events) {
		lo = len(events)
	}
	if hi > len(events) {
		hi = len(events)
	}

	views := make([]EventView, 0, hi-lo)
	for i := lo; i < hi; i++ {
		views = append(views, project(&events[i], fields))
	}

	return &Page{
		Page:        req.Page,
		Size:        req.Size,
		TotalPages:  totalPages,
		Events:      views,
		HasPrevious: req.Page > 1 && totalPages > 0,
		HasNext:     req.Page < totalPages,
	}, nil
}

func parseOrder(order string) ([]sortKey, error) {
	keys := make([]sortKey, 0, 2)
	for _, criterion := range strings.Split(order, ",") {
		if len(criterion) < 2 {
			return nil, &InvalidParameterError{Param: "order", Reason: "each criterion needs a +/- prefix and a key"}
		}
		key := sortKey{field: criterion[1:]}
		switch criterion[0] {
		case '+':
		case '-':
			key.desc = true
		default:
			return nil, &InvalidParameterError{Param: "order", Reason: "only - or + accepted as direction"}
		}
		switch key.field {
		case "id", "name", "datetime":
		default:
			return nil, &InvalidParameterError{
				Param:  "order",
				Reason: fmt.Sprintf("%q is not sortable, must be any one or combination of: id, name, datetime", key.field),
			}
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func parseFilter(filter string) ([]string, error) {
	fields := strings.Split(filter, ",")
	for _, field := range fields {
		switch field {
		case "id", "name", "date", "from", "to", "location":
		default:
			return nil, &InvalidParameterError{
				Param:  "filter",
				Reason: fmt.Sprintf("%q is not filterable, must be any one or combination of: id, name, date, from, to, location", field),
			}
		}
	}
	return fields, nil
}

// sortEvents applies the sort keys in listed order as tie-breaks. The input
// comes id-ascending from the store and the sort is stable, so fully-tied
// rows keep a deterministic order. The "datetime" key is a composite of
// (date, startTime), both following the key's direction.
func sortEvents(events []model.Event, keys []sortKey) {
	coll := collate.New(language.English)
	sort.SliceStable(events, func(i, j int) bool {
		a, b := &events[i], &events[j]
		for _, key := range keys {
			var cmp int
			switch key.field {
			case "id":
				switch {
				case a.ID < b.ID:
					cmp = -1
				case a.ID > b.ID:
					cmp = 1
				}
			case "name":
				cmp = coll.CompareString(a.Name, b.Name)
			case "datetime":
				cmp = strings.Compare(a.Date, b.Date)
				if cmp == 0 {
					cmp = strings.Compare(a.StartTime, b.StartTime)
				}
			}
			if cmp == 0 {
				continue
			}
			if key.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func project(event *model.Event, fields []string) EventView {
	view := make(EventView, len(fields))
	for _, field := range fields {
		switch field {
		case "id":
			view["id"] = event.ID
		case "name":
			view["name"] = event.Name
		case "date":
			view["date"] = event.Date
		case "from":
			view["from"] = event.StartTime
		case "to":
			view["to"] = event.EndTime
		case "location":
			view["location"] = Location{
				Street:   event.Street,
				Suburb:   event.Suburb,
				State:    event.State,
				PostCode: event.PostCode,
			}
		}
	}
	return view
}
