package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emberforge/realm-gov/src/gov"
	"github.com/emberforge/realm-gov/src/types"
)

type Proposals struct{ engine *gov.Engine }

func NewProposals(engine *gov.Engine) Proposals { return Proposals{engine: engine} }

func (h Proposals) Create(c *gin.Context) {
	var req struct {
		CommunityID uint64         `json:"communityId" binding:"required"`
		LawType     string         `json:"lawType"     binding:"required"`
		Metadata    map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if req.Metadata == nil {
		req.Metadata = map[string]any{}
	}
	p, err := h.engine.Propose(c, req.CommunityID, types.LawType(req.LawType), req.Metadata, userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h Proposals) FastTrack(c *gin.Context) {
	if err := h.engine.FastTrack(c, c.Param("id"), userID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Proposals) Get(c *gin.Context) {
	view, err := h.engine.GetProposal(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h Proposals) ListActive(c *gin.Context) {
	communityID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "bad community id"})
		return
	}
	views, err := h.engine.ListActive(c, communityID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": views})
}

func (h Proposals) ListResolved(c *gin.Context) {
	communityID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "bad community id"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	props, total, err := h.engine.ListResolved(c, communityID, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"proposals": props,
		"total":     total,
		"page":      page,
		"pageSize":  pageSize,
	})
}
