package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal"
	"github.com/valpere/wordweaver/internal/pipeline"
	"github.com/valpere/wordweaver/internal/store"
)

// analyzeRequest is the JSON body of POST /api/v1/analyze. Image is base64.
type analyzeRequest struct {
	Text     string                   `json:"text"`
	Title    string                   `json:"title"`
	Language string                   `json:"language"`
	Metadata internal.StudentMetadata `json:"metadata"`
	Image    []byte                   `json:"image,omitempty"`
}

func (s *Server) handleAnalyzeAPI(c echo.Context) error {
	var in pipeline.Input
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var req analyzeRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		if err := internal.CheckAge(req.Metadata.Age); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		in = pipeline.Input{
			Image:    req.Image,
			Text:     req.Text,
			Metadata: req.Metadata,
			Title:    req.Title,
			Language: req.Language,
		}
	} else {
		var err error
		if in, _, err = parseSubmission(c); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	res, err := s.pipe.Process(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleExtractAPI(c echo.Context) error {
	image, err := readUpload(c, "image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(image) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "an image file is required")
	}

	res, err := s.pipe.Extract(c.Request().Context(), image)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleListReportsAPI(c echo.Context) error {
	if s.reports == nil {
		return errHistoryDisabled
	}
	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	list, err := s.reports.ListReports(c.Request().Context(), strings.TrimSpace(c.QueryParam("student")), limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []store.ReportSummary{}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetReportAPI(c echo.Context) error {
	if s.reports == nil {
		return errHistoryDisabled
	}
	r, err := s.reports.GetReport(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) handleReportSubmissionAPI(c echo.Context) error {
	if s.reports == nil {
		return errHistoryDisabled
	}
	sub, err := s.reports.ReportSubmission(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

func (s *Server) handleDeleteReportAPI(c echo.Context) error {
	if s.reports == nil {
		return errHistoryDisabled
	}
	if err := s.reports.DeleteReport(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	s.logger.Info("report deleted", zap.String("report", c.Param("id")))
	return c.NoContent(http.StatusNoContent)
}
