package webserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emberforge/realm-gov/src/gov"
	"github.com/emberforge/realm-gov/src/types"
)

var timeNow = time.Now

type Votes struct{ engine *gov.Engine }

func NewVotes(engine *gov.Engine) Votes { return Votes{engine: engine} }

func (h Votes) Cast(c *gin.Context) {
	var req struct {
		Vote string `json:"vote" binding:"required,oneof=yes no"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if err := h.engine.CastVote(c, c.Param("id"), userID(c), types.VoteChoice(req.Vote)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type Admin struct{ engine *gov.Engine }

func NewAdmin(engine *gov.Engine) Admin { return Admin{engine: engine} }

// Sweep triggers the expiry batch on demand; the scheduler hits the same
// entry point.
func (h Admin) Sweep(c *gin.Context) {
	res, err := h.engine.SweepExpired(c, timeNow())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
