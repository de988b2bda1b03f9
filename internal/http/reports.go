package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"reviewmonitor/internal/model"
	"reviewmonitor/internal/repository"
)

func listEventsHandler(events repository.EventRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		var st model.SendStatus
		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			tmp := model.SendStatus(raw)
			if tmp.Valid() {
				st = tmp
			}
		}

		counts, err := events.CountByStatus(c.Request().Context())
		if err != nil {
			log.Errorf("count events failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		rows, err := events.ListRecent(c.Request().Context(), st, limit, offset)
		if err != nil {
			log.Errorf("list events failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"counts":  counts,
			"count":   len(rows),
			"results": rows,
		})
	}
}

func listRemoteFailuresHandler(calls repository.CallLogRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		if calls == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "call log not configured"})
		}

		limit := 50
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		target := strings.TrimSpace(c.QueryParam("target"))

		rows, err := calls.ListRecent(c.Request().Context(), target, limit)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"count":   len(rows),
			"results": rows,
		})
	}
}
