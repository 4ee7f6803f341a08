package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal"
	"github.com/valpere/wordweaver/internal/analysis"
	"github.com/valpere/wordweaver/internal/extractor"
	"github.com/valpere/wordweaver/internal/pipeline"
	"github.com/valpere/wordweaver/internal/report"
	"github.com/valpere/wordweaver/internal/store"
)

// Form defaults shown on the upload page.
const (
	DefaultName   = "John Doe"
	DefaultSchool = "826 Valencia"
	DefaultDOB    = "2008-01-01"
	DefaultAge    = 15
	MinAge        = internal.MinAge
	MaxAge        = internal.MaxAge
)

const defaultListLimit = 50

var errHistoryDisabled = echo.NewHTTPError(http.StatusServiceUnavailable, "report history is disabled")

type submissionForm struct {
	Name     string
	School   string
	DOB      string
	Age      int
	Language string
	Title    string
	Text     string
}

func defaultForm() submissionForm {
	return submissionForm{
		Name:     DefaultName,
		School:   DefaultSchool,
		DOB:      DefaultDOB,
		Age:      DefaultAge,
		Language: internal.LangEnglish,
	}
}

type indexView struct {
	Form   submissionForm
	Error  string
	MinAge int
	MaxAge int
}

type reportView struct {
	ID         string
	Report     *report.Report
	Result     *pipeline.Result
	Submission *internal.Submission
}

type reportsView struct {
	Student string
	Reports []store.ReportSummary
}

func (s *Server) handleIndex(c echo.Context) error {
	return s.renderIndex(c, http.StatusOK, defaultForm(), "")
}

func (s *Server) renderIndex(c echo.Context, code int, form submissionForm, msg string) error {
	return c.Render(code, "index.html", indexView{Form: form, Error: msg, MinAge: MinAge, MaxAge: MaxAge})
}

func (s *Server) handleAnalyzePage(c echo.Context) error {
	in, form, err := parseSubmission(c)
	if err != nil {
		return s.renderIndex(c, http.StatusBadRequest, form, err.Error())
	}

	res, err := s.pipe.Process(c.Request().Context(), in)
	if err != nil {
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			s.logger.Error("analysis failed", zap.Error(err))
		}
		return s.renderIndex(c, code, form, userMessage(err, code))
	}
	return c.Render(http.StatusOK, "report.html", reportView{ID: res.Report.ID, Report: res.Report, Result: res})
}

func (s *Server) handleReportsPage(c echo.Context) error {
	if s.reports == nil {
		return errHistoryDisabled
	}
	student := strings.TrimSpace(c.QueryParam("student"))
	list, err := s.reports.ListReports(c.Request().Context(), student, defaultListLimit)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "reports.html", reportsView{Student: student, Reports: list})
}

func (s *Server) handleReportPage(c echo.Context) error {
	if s.reports == nil {
		return errHistoryDisabled
	}
	ctx := c.Request().Context()
	r, err := s.reports.GetReport(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	sub, err := s.reports.ReportSubmission(ctx, r.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("failed to load submission for report", zap.String("report", r.ID), zap.Error(err))
	}
	return c.Render(http.StatusOK, "report.html", reportView{ID: r.ID, Report: r, Submission: sub})
}

func (s *Server) handleHealth(c echo.Context) error {
	if s.health == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := s.health.IsAvailable(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// parseSubmission reads the upload form. The returned form echoes what the
// user typed so the page can be re-rendered on error.
func parseSubmission(c echo.Context) (pipeline.Input, submissionForm, error) {
	form := submissionForm{
		Name:     strings.TrimSpace(c.FormValue("name")),
		School:   strings.TrimSpace(c.FormValue("school")),
		DOB:      strings.TrimSpace(c.FormValue("dob")),
		Language: strings.TrimSpace(c.FormValue("language")),
		Title:    strings.TrimSpace(c.FormValue("title")),
		Text:     c.FormValue("text"),
	}
	if form.Language == "" {
		form.Language = internal.LangEnglish
	}
	if raw := strings.TrimSpace(c.FormValue("age")); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			return pipeline.Input{}, form, fmt.Errorf("age must be a whole number")
		}
		form.Age = age
	}
	if err := internal.CheckAge(form.Age); err != nil {
		return pipeline.Input{}, form, err
	}

	image, err := readUpload(c, "image")
	if err != nil {
		return pipeline.Input{}, form, err
	}

	in := pipeline.Input{
		Image: image,
		Text:  form.Text,
		Metadata: internal.StudentMetadata{
			Name:   form.Name,
			School: form.School,
			DOB:    form.DOB,
			Age:    form.Age,
		},
		Title:    form.Title,
		Language: form.Language,
	}
	return in, form, nil
}

// readUpload returns the named file's bytes, or nil when none was sent.
func readUpload(c echo.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if fh.Size == 0 {
		return nil, nil
	}
	if !extractor.AllowedExtension(filepath.Ext(fh.Filename)) {
		return nil, fmt.Errorf("%q: only png, jpg and jpeg images are accepted", fh.Filename)
	}
	return readFileHeader(fh)
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrNoInput),
		errors.Is(err, pipeline.ErrUnsupportedLanguage),
		errors.Is(err, extractor.ErrUnsupportedFormat),
		errors.Is(err, analysis.ErrEmptySubmission):
		return http.StatusBadRequest
	case errors.Is(err, extractor.ErrNoText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func userMessage(err error, code int) string {
	if code >= http.StatusInternalServerError {
		return "Something went wrong while analysing the submission. Check that the model server is running and try again."
	}
	return err.Error()
}

func (s *Server) errorHandler(err error, c echo.Context) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		he = echo.NewHTTPError(code, userMessage(err, code)).SetInternal(err)
	}
	s.e.DefaultHTTPErrorHandler(he, c)
}
