package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/invhealth/internal/audit"
	"github.com/andresuchdata/invhealth/internal/domain"
	"github.com/andresuchdata/invhealth/internal/export"
	"github.com/andresuchdata/invhealth/internal/lock"
	"github.com/andresuchdata/invhealth/internal/service"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(service *service.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

type runRequest struct {
	DryRun bool   `json:"dry_run"`
	Date   string `json:"date"`
}

type trainedRequest struct {
	Date string `json:"date"`
}

// RunAudit triggers an audit and waits for its report
func (h *AuditHandler) RunAudit(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}
	if v := c.Query("dry_run"); v != "" {
		dry, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dry_run"})
			return
		}
		req.DryRun = dry
	}
	if v := c.Query("date"); v != "" {
		req.Date = v
	}

	date, err := parseDateParam(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	out, err := h.service.Run(c.Request.Context(), service.RunOptions{DryRun: req.DryRun, Date: date})
	switch {
	case errors.Is(err, lock.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, audit.ErrInvalidConfig):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Error().Err(err).Msg("audit run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit run failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, out)
}

// GetLatest returns the newest completed report
func (h *AuditHandler) GetLatest(c *gin.Context) {
	report, err := h.service.Latest(c.Request.Context())
	if !h.reportFound(c, err) {
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetReport returns the newest completed report of one audit date
func (h *AuditHandler) GetReport(c *gin.Context) {
	date, err := parseDateParam(c.Param("date"))
	if err != nil || date.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	report, err := h.service.ReportForDate(c.Request.Context(), date)
	if !h.reportFound(c, err) {
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetLatestIssuesCSV downloads the latest issues as CSV
func (h *AuditHandler) GetLatestIssuesCSV(c *gin.Context) {
	report, err := h.service.Latest(c.Request.Context())
	if !h.reportFound(c, err) {
		return
	}

	c.Header("Content-Disposition", "attachment; filename=issues-"+report.Summary.AuditDate+".csv")
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)
	if err := export.WriteIssuesCSV(c.Writer, report.Issues); err != nil {
		log.Error().Err(err).Msg("failed to write issues csv")
	}
}

// GetRuns lists recent runs, newest first
func (h *AuditHandler) GetRuns(c *gin.Context) {
	limit := 20
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && v > 0 {
		limit = v
	}

	runs, err := h.service.Runs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch runs", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *AuditHandler) GetParameters(c *gin.Context) {
	params, err := h.service.Parameters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch parameters", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, params)
}

// MarkTrained records a finished model retrain
func (h *AuditHandler) MarkTrained(c *gin.Context) {
	var req trainedRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}

	date, err := parseDateParam(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	params, err := h.service.MarkTrained(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update parameters", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, params)
}

func (h *AuditHandler) reportFound(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	if service.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed audit report"})
		return false
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch report", "details": err.Error()})
	return false
}

// parseDateParam accepts YYYY-MM-DD; empty yields the zero time.
func parseDateParam(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(domain.DateLayout, raw)
}
