// Package api exposes the HTTP ingress for submitting records. The response
// reflects the write only: 202 means the record is persisted and queued,
// regardless of the eventual workflow outcome; 500 means the write failed.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/luno/jettison/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andrewwormald/notifier"
)

type Handler struct {
	ingester *notifier.Ingester
	store    notifier.RecordStore
}

func NewHandler(ingester *notifier.Ingester, store notifier.RecordStore) *Handler {
	return &Handler{
		ingester: ingester,
		store:    store,
	}
}

func Router(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/v1/records", h.SubmitRecord)
	r.POST("/v1/records/batch", h.SubmitBatch)
	r.GET("/v1/records/:id", h.GetRecord)
	r.GET("/v1/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (h *Handler) SubmitRecord(c *gin.Context) {
	var in notifier.Inbound
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := h.ingester.Submit(c.Request.Context(), in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, r)
}

func (h *Handler) SubmitBatch(c *gin.Context) {
	var ins []notifier.Inbound
	if err := c.ShouldBindJSON(&ins); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rs, err := h.ingester.SubmitBatch(c.Request.Context(), ins)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"records": rs})
}

func (h *Handler) GetRecord(c *gin.Context) {
	r, err := h.store.Lookup(c.Request.Context(), c.Param("id"))
	if errors.Is(err, notifier.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, r)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
