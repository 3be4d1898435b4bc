package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lejeunel/image-db-app/internal/core"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

func reply(c *gin.Context, status int, v any, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, v)
}

func replyDeleted(c *gin.Context, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Cells ---------------------------------------------------------------------

type cellRequest struct {
	Name *string `json:"name"`
	Code *string `json:"code"`
}

func (r cellRequest) apply(cell *core.Cell) error {
	setString(&cell.Name, r.Name)
	setString(&cell.Code, r.Code)
	return nil
}

func (h *Handler) listCells(c *gin.Context) {
	cells, err := h.svc.ListCells(c.Request.Context())
	reply(c, http.StatusOK, cells, err)
}

func (h *Handler) getCell(c *gin.Context) {
	cell, err := h.svc.GetCell(c.Request.Context(), c.Param("id"))
	reply(c, http.StatusOK, cell, err)
}

func (h *Handler) createCell(c *gin.Context) {
	var req cellRequest
	if !bindJSON(c, &req) {
		return
	}
	var cell core.Cell
	if err := req.apply(&cell); err != nil {
		writeError(c, err)
		return
	}
	created, _, err := h.svc.CreateCell(c.Request.Context(), cell)
	reply(c, http.StatusCreated, created, err)
}

func (h *Handler) updateCell(c *gin.Context) {
	var req cellRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, _, err := h.svc.UpdateCell(c.Request.Context(), c.Param("id"), req.apply)
	reply(c, http.StatusOK, updated, err)
}

func (h *Handler) deleteCell(c *gin.Context) {
	_, err := h.svc.DeleteCell(c.Request.Context(), c.Param("id"))
	replyDeleted(c, err)
}

// Compounds -----------------------------------------------------------------

type compoundRequest struct {
	Name       *string `json:"name"`
	BCS        *string `json:"bcs"`
	Comment    *string `json:"comment"`
	PropertyID *int    `json:"property_id"`
}

func (r compoundRequest) apply(compound *core.Compound) error {
	setString(&compound.Name, r.Name)
	setString(&compound.BCS, r.BCS)
	setString(&compound.Comment, r.Comment)
	if r.PropertyID != nil {
		id := *r.PropertyID
		compound.PropertyID = &id
	}
	return nil
}

func (h *Handler) listCompounds(c *gin.Context) {
	compounds, err := h.svc.ListCompounds(c.Request.Context())
	reply(c, http.StatusOK, compounds, err)
}

func (h *Handler) getCompound(c *gin.Context) {
	compound, err := h.svc.GetCompound(c.Request.Context(), c.Param("id"))
	reply(c, http.StatusOK, compound, err)
}

func (h *Handler) createCompound(c *gin.Context) {
	var req compoundRequest
	if !bindJSON(c, &req) {
		return
	}
	var compound core.Compound
	if err := req.apply(&compound); err != nil {
		writeError(c, err)
		return
	}
	created, _, err := h.svc.CreateCompound(c.Request.Context(), compound)
	reply(c, http.StatusCreated, created, err)
}

func (h *Handler) updateCompound(c *gin.Context) {
	var req compoundRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, _, err := h.svc.UpdateCompound(c.Request.Context(), c.Param("id"), req.apply)
	reply(c, http.StatusOK, updated, err)
}

func (h *Handler) deleteCompound(c *gin.Context) {
	_, err := h.svc.DeleteCompound(c.Request.Context(), c.Param("id"))
	replyDeleted(c, err)
}

// Compound properties -------------------------------------------------------

type propertyRequest struct {
	Type     *string `json:"type"`
	Value    *string `json:"value"`
	ParentID *int    `json:"parent_id"`
}

func (r propertyRequest) apply(p *core.CompoundProperty) error {
	if r.Type != nil {
		t, err := domain.ParsePropertyType(*r.Type)
		if err != nil {
			return err
		}
		p.Type = t
	}
	setString(&p.Value, r.Value)
	if r.ParentID != nil {
		id := *r.ParentID
		p.ParentID = &id
	}
	return nil
}

func (h *Handler) listProperties(c *gin.Context) {
	var t core.PropertyType
	if raw := c.Query("type"); raw != "" {
		parsed, err := domain.ParsePropertyType(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		t = parsed
	}
	nodes, err := h.svc.ListCompoundProperties(c.Request.Context(), t)
	if nodes == nil {
		nodes = []core.CompoundProperty{}
	}
	reply(c, http.StatusOK, nodes, err)
}

func (h *Handler) getProperty(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	node, err := h.svc.GetCompoundProperty(c.Request.Context(), id)
	reply(c, http.StatusOK, node, err)
}

func (h *Handler) getPropertyAncestors(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	path, err := h.svc.Ancestors(c.Request.Context(), id)
	reply(c, http.StatusOK, path, err)
}

func (h *Handler) createProperty(c *gin.Context) {
	var req propertyRequest
	if !bindJSON(c, &req) {
		return
	}
	var node core.CompoundProperty
	if err := req.apply(&node); err != nil {
		writeError(c, err)
		return
	}
	created, _, err := h.svc.CreateCompoundProperty(c.Request.Context(), node)
	reply(c, http.StatusCreated, created, err)
}

func (h *Handler) updateProperty(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req propertyRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, _, err := h.svc.UpdateCompoundProperty(c.Request.Context(), id, req.apply)
	reply(c, http.StatusOK, updated, err)
}

func (h *Handler) deleteProperty(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	_, err := h.svc.DeleteCompoundProperty(c.Request.Context(), id)
	replyDeleted(c, err)
}

// Modalities ----------------------------------------------------------------

type modalityRequest struct {
	Name    *string `json:"name"`
	Target  *string `json:"target"`
	Comment *string `json:"comment"`
}

func (r modalityRequest) apply(m *core.Modality) error {
	setString(&m.Name, r.Name)
	setString(&m.Target, r.Target)
	setString(&m.Comment, r.Comment)
	return nil
}

func (h *Handler) listModalities(c *gin.Context) {
	modalities, err := h.svc.ListModalities(c.Request.Context())
	reply(c, http.StatusOK, modalities, err)
}

func (h *Handler) getModality(c *gin.Context) {
	m, err := h.svc.GetModality(c.Request.Context(), c.Param("id"))
	reply(c, http.StatusOK, m, err)
}

func (h *Handler) createModality(c *gin.Context) {
	var req modalityRequest
	if !bindJSON(c, &req) {
		return
	}
	var m core.Modality
	if err := req.apply(&m); err != nil {
		writeError(c, err)
		return
	}
	created, _, err := h.svc.CreateModality(c.Request.Context(), m)
	reply(c, http.StatusCreated, created, err)
}

func (h *Handler) updateModality(c *gin.Context) {
	var req modalityRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, _, err := h.svc.UpdateModality(c.Request.Context(), c.Param("id"), req.apply)
	reply(c, http.StatusOK, updated, err)
}

func (h *Handler) deleteModality(c *gin.Context) {
	_, err := h.svc.DeleteModality(c.Request.Context(), c.Param("id"))
	replyDeleted(c, err)
}

// Stacks --------------------------------------------------------------------

func (h *Handler) listStacks(c *gin.Context) {
	stacks, err := h.svc.ListStacks(c.Request.Context())
	reply(c, http.StatusOK, stacks, err)
}

func (h *Handler) getStack(c *gin.Context) {
	stack, err := h.svc.GetStack(c.Request.Context(), c.Param("id"))
	reply(c, http.StatusOK, stack, err)
}

func (h *Handler) createStack(c *gin.Context) {
	var req core.StackInput
	if !bindJSON(c, &req) {
		return
	}
	created, _, err := h.svc.CreateStack(c.Request.Context(), req)
	reply(c, http.StatusCreated, created, err)
}

// updateStack replaces the stack's channel associations wholesale.
func (h *Handler) updateStack(c *gin.Context) {
	var req core.StackInput
	if !bindJSON(c, &req) {
		return
	}
	updated, _, err := h.svc.UpdateStack(c.Request.Context(), c.Param("id"), req)
	reply(c, http.StatusOK, updated, err)
}

func (h *Handler) deleteStack(c *gin.Context) {
	_, err := h.svc.DeleteStack(c.Request.Context(), c.Param("id"))
	replyDeleted(c, err)
}

// Tags ----------------------------------------------------------------------

type tagRequest struct {
	Name    *string `json:"name"`
	Comment *string `json:"comment"`
}

func (r tagRequest) apply(t *core.Tag) error {
	setString(&t.Name, r.Name)
	setString(&t.Comment, r.Comment)
	return nil
}

func (h *Handler) listTags(c *gin.Context) {
	tags, err := h.svc.ListTags(c.Request.Context())
	reply(c, http.StatusOK, tags, err)
}

func (h *Handler) getTag(c *gin.Context) {
	tag, err := h.svc.GetTag(c.Request.Context(), c.Param("id"))
	reply(c, http.StatusOK, tag, err)
}

func (h *Handler) createTag(c *gin.Context) {
	var req tagRequest
	if !bindJSON(c, &req) {
		return
	}
	var tag core.Tag
	if err := req.apply(&tag); err != nil {
		writeError(c, err)
		return
	}
	created, _, err := h.svc.CreateTag(c.Request.Context(), tag)
	reply(c, http.StatusCreated, created, err)
}

func (h *Handler) updateTag(c *gin.Context) {
	var req tagRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, _, err := h.svc.UpdateTag(c.Request.Context(), c.Param("id"), req.apply)
	reply(c, http.StatusOK, updated, err)
}

func (h *Handler) deleteTag(c *gin.Context) {
	_, err := h.svc.DeleteTag(c.Request.Context(), c.Param("id"))
	replyDeleted(c, err)
}
