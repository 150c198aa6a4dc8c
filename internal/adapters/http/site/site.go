// Package site renders the server-side report pages.
package site

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/okian/rankpredictor/internal/adapters/chart"
	"github.com/okian/rankpredictor/internal/adapters/repository"
	service "github.com/okian/rankpredictor/internal/app"
	"github.com/okian/rankpredictor/internal/domain/model"
	"github.com/okian/rankpredictor/pkg/logger"
)

// Error constants
var (
	ErrRender = errors.New("report page render failed")
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.New("site").Funcs(template.FuncMap{
	"pct":  func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"num":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
}).ParseFS(templatesFS, "templates/*.html"))

// Reports is what the pages read from.
type Reports interface {
	Report(ctx context.Context, userID string) (*service.Report, error)
	Store() repository.Store
}

// Handler serves the report pages.
type Handler struct {
	reports   Reports
	threshold float64
	logger    logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithWeakThreshold draws the weak-area line on the topic chart.
func WithWeakThreshold(pct float64) Option {
	return func(h *Handler) { h.threshold = pct }
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler creates the page handler.
func NewHandler(r Reports, opts ...Option) *Handler {
	h := &Handler{reports: r, logger: logger.Get().Named("site")}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register attaches the page routes to mux.
func Register(_ context.Context, mux *http.ServeMux, h *Handler) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("GET /report/{id}", h.HandleReport)
}

type indexPage struct {
	Users []repository.User
}

type reportPage struct {
	*service.Report
	TopicChart   template.URL
	HistoryChart template.URL
}

// HandleIndex lists the stored users.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage{}
	if st := h.reports.Store(); st != nil {
		users, err := st.Users(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		page.Users = users
	}
	h.render(w, r, "index.html", page)
}

// HandleReport renders the report of the user in the path.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Report(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page := reportPage{Report: rep}
	if rep.Analysis != nil {
		page.TopicChart = h.chart(r.Context(), func(buf *bytes.Buffer) error {
			return chart.TopicPerformance(buf, rep.Analysis.TopicPerformance, chart.WithThreshold(h.threshold))
		})
	}
	scores := append(model.Scores(rep.History), rep.Attempt.TotalScore)
	page.HistoryChart = h.chart(r.Context(), func(buf *bytes.Buffer) error {
		return chart.ScoreHistory(buf, scores)
	})
	h.render(w, r, "report.html", page)
}

// chart renders a PNG as a data URL. A failed chart is logged and omitted.
func (h *Handler) chart(ctx context.Context, draw func(*bytes.Buffer) error) template.URL {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		h.logger.Warn(ctx, "chart skipped", logger.Error(err))
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.fail(w, r, fmt.Errorf("%s: %w: %w", name, ErrRender, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch service.ErrorKind(err) {
	case "not_found":
		status = http.StatusNotFound
	case "no_store", "not_fitted":
		status = http.StatusServiceUnavailable
	case "invalid_input", "insufficient_history":
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "page failed", logger.String("path", r.URL.Path), logger.Error(err))
	}
	http.Error(w, err.Error(), status)
}
