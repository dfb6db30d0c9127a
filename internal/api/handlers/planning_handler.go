package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/andresuchdata/conventicore/internal/cache"
	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/pipeline"
	"github.com/andresuchdata/conventicore/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type PlanningHandler struct {
	service *service.PlanningService
}

func NewPlanningHandler(service *service.PlanningService) *PlanningHandler {
	return &PlanningHandler{service: service}
}

// parseFilter reads ?category=A&category=B or ?category=A,B and ?priority=HIGH.
func (h *PlanningHandler) parseFilter(c *gin.Context, table string) cache.TableFilter {
	filter := cache.TableFilter{
		Period: strings.TrimSpace(c.Param("period")),
		Table:  table,
	}

	seen := make(map[string]struct{})
	for _, v := range c.QueryArray("category") {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			key := strings.ToLower(part)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			filter.Categories = append(filter.Categories, part)
		}
	}

	if priority := strings.TrimSpace(c.Query("priority")); priority != "" {
		filter.Priority = strings.ToUpper(priority)
	}
	return filter
}

// RunPlanning runs the pipeline for the period. A partial run still answers 200 with its stage errors.
func (h *PlanningHandler) RunPlanning(c *gin.Context) {
	res, err := h.service.Run(c.Request.Context(), c.Param("period"))
	if res == nil || res.Run.Status == pipeline.StatusFailed {
		h.fail(c, err, "failed to run planning")
		return
	}

	body := gin.H{
		"run":     res.Run,
		"summary": res.Summary,
	}
	if err != nil {
		log.Warn().Err(err).Str("period", res.Run.Period).Msg("planning: run finished partially")
		body["errors"] = res.Summary.StageErrors
	}
	c.JSON(http.StatusOK, body)
}

func (h *PlanningHandler) GetRun(c *gin.Context) {
	res, err := h.service.GetResult(c.Request.Context(), c.Param("period"))
	if err != nil {
		h.fail(c, err, "failed to fetch run")
		return
	}
	c.JSON(http.StatusOK, res.Run)
}

func (h *PlanningHandler) GetSummary(c *gin.Context) {
	summary, err := h.service.GetSummary(c.Request.Context(), c.Param("period"))
	if err != nil {
		h.fail(c, err, "failed to fetch summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetTable serves one output table of the period.
func (h *PlanningHandler) GetTable(table string) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := h.service.GetTable(c.Request.Context(), h.parseFilter(c, table))
		if err != nil {
			h.fail(c, err, "failed to fetch "+table)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"table":   t.Name,
			"columns": t.Columns,
			"items":   t.Rows,
			"total":   t.Len(),
		})
	}
}

func (h *PlanningHandler) Publish(c *gin.Context) {
	pack, err := h.service.Publish(c.Request.Context(), c.Param("period"))
	if err != nil {
		h.fail(c, err, "failed to publish pack")
		return
	}
	c.JSON(http.StatusOK, pack)
}

func (h *PlanningHandler) fail(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidPeriod), errors.Is(err, service.ErrUnknownTable):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNoRun):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrRunInProgress):
		status = http.StatusConflict
	case domain.IsStructural(err):
		status = http.StatusUnprocessableEntity
	}

	details := ""
	if err != nil {
		details = err.Error()
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg(message)
	}
	c.JSON(status, gin.H{"error": message, "details": details})
}
