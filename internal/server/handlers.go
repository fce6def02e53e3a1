package server

import (
	"bytes"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/findash/internal/analysis"
	"github.com/KaramelBytes/findash/internal/charts"
	"github.com/KaramelBytes/findash/internal/dataset"
	pngrender "github.com/KaramelBytes/findash/internal/render"
	findashmiddleware "github.com/KaramelBytes/findash/internal/server/middleware"
)

const maxPageSize = 1000

type handler struct {
	ds      *dataset.Dataset
	report  *analysis.Report
	figures []charts.Figure
	page    []byte
}

// ErrResponse is the JSON error body of every API failure.
type ErrResponse struct {
	HTTPStatusCode int    `json:"status"`
	Error          string `json:"error"`
	RequestID      string `json:"request_id,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func errResponse(r *http.Request, status int, msg string) render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: status,
		Error:          msg,
		RequestID:      findashmiddleware.GetRequestID(r.Context()),
	}
}

func (h *handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(h.page); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to write dashboard page")
	}
}

func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{"status": "ok", "rows": h.ds.Len()})
}

// DatasetPage is a window of dataset rows. Null cells and undefined numbers
// (such as a zero-denominator Discount Percentage) are encoded as null.
type DatasetPage struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Total   int      `json:"total"`
	Offset  int      `json:"offset"`
	Rows    [][]any  `json:"rows"`
}

func (h *handler) Dataset(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		render.Render(w, r, errResponse(r, http.StatusBadRequest, "offset must be a non-negative integer"))
		return
	}
	limit, err := queryInt(r, "limit", maxPageSize)
	if err != nil || limit < 1 || limit > maxPageSize {
		render.Render(w, r, errResponse(r, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxPageSize)))
		return
	}

	page := DatasetPage{Name: h.ds.Name, Columns: h.ds.Columns, Total: h.ds.Len(), Offset: offset, Rows: [][]any{}}
	end := min(offset+limit, h.ds.Len())
	for i := offset; i < end; i++ {
		row := h.ds.Rows[i]
		out := make([]any, len(row))
		for j, c := range row {
			out[j] = cellJSON(c)
		}
		page.Rows = append(page.Rows, out)
	}
	render.JSON(w, r, page)
}

func cellJSON(c dataset.Cell) any {
	switch c.Kind {
	case dataset.KindText:
		return c.Str
	case dataset.KindNumber:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return nil
		}
		return c.Num
	case dataset.KindTime:
		return c.String()
	default:
		return nil
	}
}

func (h *handler) Summary(w http.ResponseWriter, r *http.Request) {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "markdown", "md":
		render.PlainText(w, r, h.report.Markdown())
	case "", "json":
		render.JSON(w, r, h.report)
	default:
		render.Render(w, r, errResponse(r, http.StatusBadRequest, "format must be json or markdown"))
	}
}

// FigureInfo lists a figure without its data.
type FigureInfo struct {
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Kind  charts.Kind `json:"kind"`
	PNG   bool        `json:"png"`
}

func (h *handler) Charts(w http.ResponseWriter, r *http.Request) {
	out := make([]FigureInfo, len(h.figures))
	for i, f := range h.figures {
		out[i] = FigureInfo{ID: f.ID, Title: f.Title, Kind: f.Kind, PNG: pngrender.Supported(f.Kind)}
	}
	render.JSON(w, r, out)
}

// Chart serves /charts/{id} as JSON, or as an image when id ends in ".png".
func (h *handler) Chart(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	id := chi.URLParam(r, "id")
	asPNG := strings.HasSuffix(id, ".png")
	id = strings.TrimSuffix(id, ".png")

	fig, err := charts.Lookup(h.figures, id)
	if err != nil {
		render.Render(w, r, errResponse(r, http.StatusNotFound, err.Error()))
		return
	}
	if !asPNG {
		render.JSON(w, r, fig)
		return
	}

	opt := pngrender.DefaultOptions()
	if v, err := queryInt(r, "width", opt.Width); err == nil && v >= 200 && v <= 4000 {
		opt.Width = v
	}
	if v, err := queryInt(r, "height", opt.Height); err == nil && v >= 150 && v <= 4000 {
		opt.Height = v
	}
	var buf bytes.Buffer
	if err := pngrender.PNG(&buf, fig, opt); err != nil {
		if errors.Is(err, pngrender.ErrUnsupportedKind) {
			render.Render(w, r, errResponse(r, http.StatusUnprocessableEntity, err.Error()))
			return
		}
		logger.Error().Err(err).Str("figure", id).Msg("failed to render chart")
		render.Render(w, r, errResponse(r, http.StatusInternalServerError, "failed to render chart"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Error().Err(err).Str("figure", id).Msg("failed to write chart")
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
