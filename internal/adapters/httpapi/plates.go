package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lejeunel/image-db-app/internal/core"
)

type plateRequest struct {
	Name    *string `json:"name"`
	Date    *string `json:"date"`
	Origin  *string `json:"origin"`
	Comment *string `json:"comment"`
	Project *string `json:"project"`
}

func (r plateRequest) apply(p *core.Plate) error {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Date != nil {
		d, err := parseTime(core.EntityPlate, "date", *r.Date)
		if err != nil {
			return err
		}
		p.Date = d
	}
	if r.Origin != nil {
		p.Origin = *r.Origin
	}
	if r.Comment != nil {
		p.Comment = *r.Comment
	}
	if r.Project != nil {
		p.Project = *r.Project
	}
	return nil
}

func (h *Handler) listPlates(c *gin.Context) {
	plates, err := h.svc.ListPlates(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plates)
}

func (h *Handler) getPlate(c *gin.Context) {
	plate, err := h.svc.GetPlate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plate)
}

func (h *Handler) createPlate(c *gin.Context) {
	var req plateRequest
	if !bindJSON(c, &req) {
		return
	}
	var plate core.Plate
	if err := req.apply(&plate); err != nil {
		writeError(c, err)
		return
	}
	created, _, err := h.svc.CreatePlate(c.Request.Context(), plate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updatePlate(c *gin.Context) {
	var req plateRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, _, err := h.svc.UpdatePlate(c.Request.Context(), c.Param("id"), req.apply)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deletePlate(c *gin.Context) {
	if _, err := h.svc.DeletePlate(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getPlateStack(c *gin.Context) {
	stack, err := h.svc.PlateStack(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stack)
}

type plateStackRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) assignPlateStack(c *gin.Context) {
	var req plateStackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	plate, _, err := h.svc.AssignPlateStack(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plate)
}

// TimePoints ----------------------------------------------------------------

type timePointRequest struct {
	URI  string  `json:"uri"`
	Time *string `json:"time"`
}

func (h *Handler) listPlateTimePoints(c *gin.Context) {
	tps, err := h.svc.ListTimePoints(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tps)
}

func (h *Handler) listTimePoints(c *gin.Context) {
	tps, err := h.svc.ListTimePoints(c.Request.Context(), c.Query("plate_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tps)
}

type ingestionResponse struct {
	TimePoint core.TimePoint `json:"timepoint"`
	Items     int            `json:"items"`
}

// createTimePoint registers a timepoint and ingests the files under its URI.
func (h *Handler) createTimePoint(c *gin.Context) {
	var req timePointRequest
	if !bindJSON(c, &req) {
		return
	}
	tp := core.TimePoint{PlateID: c.Param("id"), URI: req.URI, Time: time.Now().UTC()}
	if req.Time != nil {
		t, err := parseTime(core.EntityTimePoint, "time", *req.Time)
		if err != nil {
			writeError(c, err)
			return
		}
		tp.Time = t
	}
	ing, _, err := h.svc.CreateTimePoint(c.Request.Context(), tp)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ingestionResponse{TimePoint: ing.TimePoint, Items: len(ing.Items)})
}

func (h *Handler) deletePlateTimePoints(c *gin.Context) {
	n, _, err := h.svc.DeletePlateTimePoints(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *Handler) getTimePoint(c *gin.Context) {
	tp, err := h.svc.GetTimePoint(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tp)
}

// updateTimePoint only changes the acquisition time; the URI is immutable
// once files have been ingested from it.
func (h *Handler) updateTimePoint(c *gin.Context) {
	var req timePointRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, _, err := h.svc.UpdateTimePoint(c.Request.Context(), c.Param("id"), func(tp *core.TimePoint) error {
		if req.Time == nil {
			return nil
		}
		t, err := parseTime(core.EntityTimePoint, "time", *req.Time)
		if err != nil {
			return err
		}
		tp.Time = t
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteTimePoint(c *gin.Context) {
	if _, err := h.svc.DeleteTimePoint(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
