package indices

import (
	"docflow/session"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var (
	PathIndexRequests = "/v1/indices"

	indexRequestLimiter = rate.NewLimiter(rate.Every(time.Minute), 1)
)

func RegisterIndicesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathIndexRequests, middleWares...)
	g.POST("", handleIndexRequest)
}

func handleIndexRequest(c *gin.Context) {
	sec := session.ExtractSessionFromGinContext(c)
	// only permitted callers consume the rate
	if err := checkRebuildPermission(sec); err != nil {
		panic(err)
	}
	if !indexRequestLimiter.Allow() {
		c.JSON(http.StatusOK, gin.H{"result": "request rate limited"})
		return
	}
	success, err := ScheduleNewSyncRunFunc(sec)
	if err != nil {
		panic(err)
	}
	if !success {
		c.JSON(http.StatusOK, gin.H{"result": "running"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"result": "started"})
}
