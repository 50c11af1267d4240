package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetPage renders the dashboard page
func (ctl *Controller) GetPage(c *gin.Context) {
	status := ctl.Probe.Status()
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Title":   ctl.Title,
		"Host":    status.Host,
		"Project": status.Project,
	})
}

// GetDashboard returns the full dashboard state: current sample, history,
// derived rates, trends and the loading/error flags
func (ctl *Controller) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Poller.Snapshot())
}

// GetHistory returns the history window with its derived rate series
func (ctl *Controller) GetHistory(c *gin.Context) {
	state := ctl.Poller.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"history":   state.History,
		"rates":     state.Rates,
		"count":     len(state.History),
		"timestamp": state.Timestamp,
	})
}

// TriggerRefresh starts a manual refresh. A request that arrives while a
// refresh is in flight is dropped and answers started=false.
func (ctl *Controller) TriggerRefresh(c *gin.Context) {
	started := ctl.Poller.TriggerRefresh()
	code := http.StatusAccepted
	if !started {
		code = http.StatusOK
	}
	c.JSON(code, gin.H{"started": started})
}
