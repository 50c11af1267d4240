package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetConnection returns the result of the last connectivity check
func (ctl *Controller) GetConnection(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Probe.Status())
}

// CheckConnection probes the store now and returns the new status
func (ctl *Controller) CheckConnection(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Probe.Check(c.Request.Context()))
}
