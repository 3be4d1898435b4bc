package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lejeunel/image-db-app/internal/core"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

// sectionRequest accepts references either by id or by natural key; a
// natural key wins when both are given.
type sectionRequest struct {
	core.SectionRefs
	CellID                *string  `json:"cell_id"`
	CompoundID            *string  `json:"compound_id"`
	StackID               *string  `json:"stack_id"`
	RowStart              *string  `json:"row_start"`
	RowEnd                *string  `json:"row_end"`
	ColStart              *int     `json:"col_start"`
	ColEnd                *int     `json:"col_end"`
	CompoundConcentration *float64 `json:"compound_concentration"`
}

func (r sectionRequest) apply(s *core.Section) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.CellID, r.CellID)
	set(&s.CompoundID, r.CompoundID)
	set(&s.StackID, r.StackID)
	set(&s.RowStart, r.RowStart)
	set(&s.RowEnd, r.RowEnd)
	if r.ColStart != nil {
		s.ColStart = *r.ColStart
	}
	if r.ColEnd != nil {
		s.ColEnd = *r.ColEnd
	}
	if r.CompoundConcentration != nil {
		if *r.CompoundConcentration < 0 {
			return &domain.ValidationError{Entity: domain.EntitySection, Field: "compound_concentration", Value: *r.CompoundConcentration, Reason: "must not be negative"}
		}
		s.CompoundConcentration = *r.CompoundConcentration
	}
	return nil
}

func (h *Handler) listPlateSections(c *gin.Context) {
	sections, err := h.svc.ListSections(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sections)
}

func (h *Handler) listSections(c *gin.Context) {
	sections, err := h.svc.ListSections(c.Request.Context(), c.Query("plate_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sections)
}

func (h *Handler) createSection(c *gin.Context) {
	var req sectionRequest
	if !bindJSON(c, &req) {
		return
	}
	section := core.Section{PlateID: c.Param("id")}
	if err := req.apply(&section); err != nil {
		writeError(c, err)
		return
	}
	created, _, err := h.svc.CreateSection(c.Request.Context(), section, req.SectionRefs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) deletePlateSections(c *gin.Context) {
	n, _, err := h.svc.DeletePlateSections(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *Handler) getSection(c *gin.Context) {
	section, err := h.svc.GetSection(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, section)
}

func (h *Handler) updateSection(c *gin.Context) {
	var req sectionRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, _, err := h.svc.UpdateSection(c.Request.Context(), c.Param("id"), req.SectionRefs, req.apply)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteSection(c *gin.Context) {
	if _, err := h.svc.DeleteSection(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
