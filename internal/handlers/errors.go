package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/sjperalta/fintera-cashflow/internal/services"
	"github.com/sjperalta/fintera-cashflow/pkg/logger"
)

// respondError maps service errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, services.ErrMissingReference),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidOperation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		logger.Error("[HTTP] unexpected error", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": "Erro interno"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// paramID reads a positive numeric path parameter, answering 400 when it is not one
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, fmt.Sprintf("%s inválido", name))
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%s inválido: %q", name, raw)
	}
	id := uint(v)
	return &id, nil
}

func queryDate(c *gin.Context, name string) (date.Date, error) {
	raw := c.Query(name)
	if raw == "" {
		return date.Date{}, nil
	}
	d, err := date.Parse(raw)
	if err != nil {
		return date.Date{}, fmt.Errorf("%s inválido: %q", name, raw)
	}
	return d, nil
}

// queryMonthRange reads the optional from and to months
func queryMonthRange(c *gin.Context) (from, to date.YearMonth, err error) {
	if raw := c.Query("from"); raw != "" {
		if from, err = date.ParseYearMonth(raw); err != nil {
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = date.ParseYearMonth(raw); err != nil {
			return
		}
	}
	return
}

func queryList(c *gin.Context, name string) []string {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
