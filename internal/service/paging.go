package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/storage"
)

var ErrInvalidPageRequest = errors.New("invalid page request")

// DataTablesRequest is the server-side processing request sent by the UI table.
type DataTablesRequest struct {
	Draw    int                `json:"draw" validate:"gte=0"`
	Start   int                `json:"start" validate:"gte=0"`
	Length  int                `json:"length" validate:"gte=-1,ne=0"`
	Columns []DataTablesColumn `json:"columns" validate:"dive"`
	Order   []DataTablesOrder  `json:"order" validate:"dive"`
	Search  DataTablesSearch   `json:"search"`
}

type DataTablesColumn struct {
	Data       string           `json:"data"`
	Name       string           `json:"name"`
	Searchable bool             `json:"searchable"`
	Orderable  bool             `json:"orderable"`
	Search     DataTablesSearch `json:"search"`
}

type DataTablesOrder struct {
	Column int    `json:"column" validate:"gte=0"`
	Dir    string `json:"dir"`
}

// DataTablesSearch is accepted for protocol compatibility; filtering is not applied.
type DataTablesSearch struct {
	Value string `json:"value"`
	Regex bool   `json:"regex"`
}

// DataTableData is the response the UI table expects.
type DataTableData struct {
	Draw            int            `json:"draw"`
	RecordsTotal    int64          `json:"recordsTotal"`
	RecordsFiltered int64          `json:"recordsFiltered"`
	Data            []domain.Event `json:"data"`
}

// sortableColumns maps table column names to store columns.
var sortableColumns = map[string]storage.SortColumn{
	"id":          storage.SortByID,
	"dateEvent":   storage.SortByDateEvent,
	"eventType":   storage.SortByEventType,
	"eventStatus": storage.SortByEventStatus,
	"emitterId":   storage.SortByEmitterID,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func invalidPage(fields ...domain.FieldError) error {
	return fmt.Errorf("%w: %w", ErrInvalidPageRequest, &domain.ValidationError{Fields: fields})
}

// ToPageQuery translates a table request into a store query. The page index
// is start/length; without an explicit order the query sorts by id descending.
// A length of -1 asks for every row.
func ToPageQuery(req DataTablesRequest) (storage.PageQuery, error) {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return storage.PageQuery{}, fmt.Errorf("%w: %w", ErrInvalidPageRequest, err)
		}
		fields := make([]domain.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			field := fe.Namespace()
			if i := strings.IndexByte(field, '.'); i >= 0 {
				field = field[i+1:]
			}
			fields = append(fields, domain.FieldError{Field: field, Msg: fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())})
		}
		return storage.PageQuery{}, invalidPage(fields...)
	}

	q := storage.PageQuery{Sort: storage.SortByID, Desc: true}
	if req.Length > 0 {
		q.Index = req.Start / req.Length
		q.Size = req.Length
	}

	if len(req.Order) > 0 {
		o := req.Order[0]
		if o.Column >= len(req.Columns) {
			return storage.PageQuery{}, invalidPage(domain.FieldError{Field: "order[0].column", Msg: "out of range"})
		}
		name := req.Columns[o.Column].Data
		col, ok := sortableColumns[name]
		if !ok {
			return storage.PageQuery{}, invalidPage(domain.FieldError{Field: "order[0].column", Msg: fmt.Sprintf("column %q is not sortable", name)})
		}
		q.Sort = col
		q.Desc = o.Dir != "asc"
	}
	return q, nil
}

// PageEvents serves one table page of events dated within [from, to].
// recordsFiltered equals recordsTotal: column search is not applied.
func (s *EventService) PageEvents(ctx context.Context, req DataTablesRequest, from, to time.Time) (DataTableData, error) {
	if errs := domain.ValidateWindow(from, to); len(errs) > 0 {
		return DataTableData{}, invalidPage(errs...)
	}
	q, err := ToPageQuery(req)
	if err != nil {
		return DataTableData{}, err
	}

	page, err := s.Store.PageEventsBetween(ctx, from, to, q)
	if err != nil {
		return DataTableData{}, err
	}

	rows := page.Rows
	if rows == nil {
		rows = []domain.Event{}
	}
	return DataTableData{
		Draw:            req.Draw,
		RecordsTotal:    page.Total,
		RecordsFiltered: page.Total,
		Data:            rows,
	}, nil
}
