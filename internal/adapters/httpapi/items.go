package httpapi

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lejeunel/image-db-app/internal/query"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
)

func negotiateFormat(c *gin.Context) string {
	wanted := strings.ToLower(c.Query("format"))
	if wanted == "" {
		if strings.Contains(c.GetHeader("Accept"), "text/csv") {
			return formatCSV
		}
		return formatJSON
	}
	switch wanted {
	case formatCSV, formatJSON:
		return wanted
	}
	return ""
}

// listItems returns one page of the filtered item join, or every matching
// record as CSV when format=csv.
func (h *Handler) listItems(c *gin.Context) {
	format := negotiateFormat(c)
	if format == "" {
		respondError(c, http.StatusNotAcceptable, "not_acceptable", fmt.Errorf("format %q not supported", c.Query("format")))
		return
	}
	if format == formatCSV {
		records, err := h.svc.QueryItems(c.Request.Context(), filters(c))
		if err != nil {
			writeError(c, err)
			return
		}
		streamCSV(c, records)
		return
	}

	page, err := h.page(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	records, info, err := h.svc.ListItems(c.Request.Context(), filters(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	setPaginationHeaders(c, info)
	if records == nil {
		records = []query.ItemRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) getItem(c *gin.Context) {
	record, err := h.svc.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) getItemContent(c *gin.Context) {
	content, err := h.svc.ItemContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, content.ContentType, content.Data)
}

func (h *Handler) tagItems(c *gin.Context) {
	n, _, err := h.svc.TagItems(c.Request.Context(), c.Param("name"), filters(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag": c.Param("name"), "tagged": n})
}

func (h *Handler) untagItems(c *gin.Context) {
	n, _, err := h.svc.UntagItems(c.Request.Context(), c.Param("name"), filters(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag": c.Param("name"), "untagged": n})
}

type csvColumn struct {
	name  string
	value func(query.ItemRecord) any
}

var itemColumns = []csvColumn{
	{"id", func(r query.ItemRecord) any { return r.ID }},
	{"uri", func(r query.ItemRecord) any { return r.URI }},
	{"row", func(r query.ItemRecord) any { return r.Row }},
	{"col", func(r query.ItemRecord) any { return r.Col }},
	{"site", func(r query.ItemRecord) any { return r.Site }},
	{"chan", func(r query.ItemRecord) any { return r.Chan }},
	{"plate_id", func(r query.ItemRecord) any { return r.PlateID }},
	{"plate_name", func(r query.ItemRecord) any { return r.PlateName }},
	{"timepoint_id", func(r query.ItemRecord) any { return r.TimePointID }},
	{"timepoint_uri", func(r query.ItemRecord) any { return r.TimePointURI }},
	{"timepoint_time", func(r query.ItemRecord) any { return r.TimePointTime }},
	{"section_id", func(r query.ItemRecord) any { return r.SectionID }},
	{"cell_name", func(r query.ItemRecord) any { return r.CellName }},
	{"cell_code", func(r query.ItemRecord) any { return r.CellCode }},
	{"compound_name", func(r query.ItemRecord) any { return r.CompoundName }},
	{"compound_concentration", func(r query.ItemRecord) any { return r.CompoundConcentration }},
	{"compound_moa_group", func(r query.ItemRecord) any { return r.CompoundMoaGroup }},
	{"compound_moa_subgroup", func(r query.ItemRecord) any { return r.CompoundMoaSubgroup }},
	{"compound_target", func(r query.ItemRecord) any { return r.CompoundTarget }},
	{"stack_name", func(r query.ItemRecord) any { return r.StackName }},
	{"modality_name", func(r query.ItemRecord) any { return r.ModalityName }},
	{"modality_target", func(r query.ItemRecord) any { return r.ModalityTarget }},
	{"tags", func(r query.ItemRecord) any { return r.Tags }},
}

func streamCSV(c *gin.Context, records []query.ItemRecord) {
	filename := fmt.Sprintf("items-%s.csv", time.Now().UTC().Format("20060102T150405Z"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Header(totalCountHeader, fmt.Sprint(len(records)))
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(itemColumns))
	for i, column := range itemColumns {
		headers[i] = column.name
	}
	if err := writer.Write(headers); err != nil {
		return
	}
	row := make([]string, len(itemColumns))
	for _, record := range records {
		for i, column := range itemColumns {
			row[i] = formatValue(column.value(record))
		}
		if err := writer.Write(row); err != nil {
			return
		}
	}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case *int:
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%d", *v)
	case *float64:
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%g", *v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
