package indices

import (
	"net/http"

	"github.com/assujiar/ugc-business-command-portal-sub003/session"
	"github.com/gin-gonic/gin"
)

var (
	PathIndicesSync = "/v1/indices/sync"
)

func RegisterIndicesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathIndicesSync, middleWares...)
	g.POST("", handleSyncRequest)
}

func handleSyncRequest(c *gin.Context) {
	success, err := ScheduleNewSyncRunFunc(session.ExtractActor(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{"result": success})
}
