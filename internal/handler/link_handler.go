package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkbio/internal/db"
	"github.com/linkbio/internal/service"
)

type linkRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type linkReorderRequest struct {
	Items []struct {
		ID       uint `json:"id"`
		NewOrder int  `json:"newOrder"`
	} `json:"items"`
}

// ListLinks 返回全部链接（含隐藏的）
func (a *API) ListLinks(c *gin.Context) {
	links, err := a.links.List(currentUserID(c))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": linkPayloads(links)})
}

// CreateLink 新增链接并追加到末尾
func (a *API) CreateLink(c *gin.Context) {
	var payload linkRequest
	if !bindJSON(c, &payload, "Invalid link") {
		return
	}

	link, err := a.links.Add(currentUserID(c), payload.Title, payload.URL)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"link": linkPayload(*link)})
}

// UpdateLink 修改标题与地址
func (a *API) UpdateLink(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid link id")
		return
	}

	var payload linkRequest
	if !bindJSON(c, &payload, "Invalid link") {
		return
	}

	if err := a.links.Update(currentUserID(c), id, payload.Title, payload.URL); err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link updated"})
}

// ToggleLink 切换链接在公开页的可见性
func (a *API) ToggleLink(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid link id")
		return
	}

	if err := a.links.ToggleVisibility(currentUserID(c), id); err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link visibility updated"})
}

// DeleteLink 删除链接
func (a *API) DeleteLink(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid link id")
		return
	}

	if err := a.links.Delete(currentUserID(c), id); err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted"})
}

// ReorderLinks 保存拖拽后的排序
func (a *API) ReorderLinks(c *gin.Context) {
	var payload linkReorderRequest
	if !bindJSON(c, &payload, "Invalid order payload") {
		return
	}

	items := make([]service.LinkOrder, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, service.LinkOrder{ID: item.ID, NewOrder: item.NewOrder})
	}

	if err := a.links.Reorder(currentUserID(c), items); err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order saved"})
}

func linkPayloads(links []db.Link) []gin.H {
	items := make([]gin.H, 0, len(links))
	for _, link := range links {
		items = append(items, linkPayload(link))
	}
	return items
}

func linkPayload(link db.Link) gin.H {
	return gin.H{
		"id":        link.ID,
		"title":     link.Title,
		"url":       link.URL,
		"isVisible": link.IsVisible,
		"order":     link.Order,
	}
}
