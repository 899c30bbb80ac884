package servehttp

import (
	"net/http"

	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/workflow"
	"github.com/assujiar/ugc-business-command-portal-sub003/session"
	"github.com/gin-gonic/gin"
)

var PathWorkflows = "/v1/workflows"

type stateView struct {
	workflow.StateDefinition
	Targets []string `json:"targets"`
}

type tableView struct {
	*workflow.Table
	States []stateView `json:"states"`
}

func viewOf(t *workflow.Table) *tableView {
	v := &tableView{Table: t, States: []stateView{}}
	for _, s := range t.States {
		v.States = append(v.States, stateView{StateDefinition: s, Targets: t.Targets(s.Name)})
	}
	return v
}

func RegisterWorkflowsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathWorkflows, middleWares...)
	g.GET("", handleQueryWorkflows)
	g.GET("/:type", handleDetailWorkflow)
	g.GET("/:type/graph", handleWorkflowGraph)
}

// only the tables the actor can access are listed
func handleQueryWorkflows(c *gin.Context) {
	actor := session.ExtractActor(c)
	views := []*tableView{}
	for _, t := range workflow.ActiveRegistry.Tables() {
		if actor.Can(t.AccessCapability) {
			views = append(views, viewOf(t))
		}
	}
	c.JSON(http.StatusOK, views)
}

func accessibleTable(c *gin.Context) *workflow.Table {
	actor := session.ExtractActor(c)
	t, found := workflow.ActiveRegistry.Table(domain.EntityType(c.Param("type")))
	if !found || !actor.Can(t.AccessCapability) {
		panic(bizerror.ErrNotFound)
	}
	return t
}

func handleDetailWorkflow(c *gin.Context) {
	c.JSON(http.StatusOK, viewOf(accessibleTable(c)))
}

func handleWorkflowGraph(c *gin.Context) {
	c.Data(http.StatusOK, "text/vnd.graphviz; charset=utf-8", []byte(accessibleTable(c).Graph()))
}
