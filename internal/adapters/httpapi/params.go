package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lejeunel/image-db-app/internal/query"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

const (
	totalCountHeader = "X-Total-Count"
	paginationHeader = "X-Pagination"
)

// reservedParams are query parameters that are not item filters.
var reservedParams = map[string]bool{"page": true, "page_size": true, "format": true}

func (h *Handler) page(c *gin.Context) (query.Page, error) {
	var p query.Page
	for name, dst := range map[string]*int{"page": &p.Page, "page_size": &p.PageSize} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return query.Page{}, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
		}
		*dst = v
	}
	return p.Normalize(h.config.DefaultPageSize, h.config.MaxPageSize), nil
}

// filters collects every non-reserved query parameter. Comma-separated
// values are split so ?row=A,B equals ?row=A&row=B.
func filters(c *gin.Context) query.Filters {
	out := query.Filters{}
	for key, values := range c.Request.URL.Query() {
		if reservedParams[key] {
			continue
		}
		for _, v := range values {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out[key] = append(out[key], part)
				}
			}
		}
	}
	return out
}

func setPaginationHeaders(c *gin.Context, info query.PageInfo) {
	c.Header(totalCountHeader, strconv.Itoa(info.Total))
	if raw, err := json.Marshal(info); err == nil {
		c.Header(paginationHeader, string(raw))
	}
}

// bindJSON decodes the request body. An empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, fmt.Errorf("invalid request payload: %w", err))
		return false
	}
	return true
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(entity domain.EntityType, field, raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &domain.ValidationError{Entity: entity, Field: field, Value: raw, Reason: "must be a date or RFC 3339 timestamp"}
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		badRequest(c, fmt.Errorf("%s must be an integer, got %q", name, c.Param(name)))
		return 0, false
	}
	return v, true
}
