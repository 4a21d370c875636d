package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkbio/internal/db"
	"github.com/linkbio/internal/service"
	"github.com/linkbio/internal/view"
)

type profileRequest struct {
	DisplayName string  `json:"displayName"`
	Bio         *string `json:"bio"`
}

type socialRequest struct {
	Socials []struct {
		Platform  string `json:"platform"`
		Value     string `json:"value"`
		Order     *int   `json:"order"`
		IsVisible *bool  `json:"isVisible"`
	} `json:"socials"`
}

type socialReorderRequest struct {
	Items []struct {
		Platform string `json:"platform"`
		Order    int    `json:"order"`
	} `json:"items"`
}

// Dashboard 一次性返回后台首页所需的资料、社交平台、外观、头像与链接
func (a *API) Dashboard(c *gin.Context) {
	data, err := a.profiles.Dashboard(currentUserID(c))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":       profilePayload(data.Profile),
		"socials":       socialPayloads(data.Socials),
		"design":        data.Design,
		"theme":         service.ThemeFromAttributes(data.Design),
		"avatars":       avatarPayloads(data.Avatars),
		"links":         linkPayloads(data.Links),
		"socialOptions": view.SocialIconOptions(),
		"uploadMode":    a.avatars.Mode(),
	})
}

// UpdateProfile 保存显示名称与简介
func (a *API) UpdateProfile(c *gin.Context) {
	var payload profileRequest
	if !bindJSON(c, &payload, "Invalid profile") {
		return
	}

	profile, err := a.profiles.Upsert(currentUserID(c), service.ProfileInput{
		DisplayName: payload.DisplayName,
		Bio:         payload.Bio,
	})
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profilePayload(*profile)})
}

// ListSocials 返回全部社交平台（含隐藏的）
func (a *API) ListSocials(c *gin.Context) {
	socials, err := a.socials.List(currentUserID(c))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"socials": socialPayloads(socials)})
}

// SaveSocials 批量保存社交平台，空值表示删除该平台
func (a *API) SaveSocials(c *gin.Context) {
	var payload socialRequest
	if !bindJSON(c, &payload, "Invalid socials") {
		return
	}

	items := make([]service.SocialInput, 0, len(payload.Socials))
	for _, item := range payload.Socials {
		items = append(items, service.SocialInput{
			Platform:  item.Platform,
			Value:     item.Value,
			Order:     item.Order,
			IsVisible: item.IsVisible,
		})
	}

	userID := currentUserID(c)
	if err := a.socials.Upsert(userID, items); err != nil {
		a.handleServiceError(c, err)
		return
	}

	socials, err := a.socials.List(userID)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"socials": socialPayloads(socials)})
}

// ReorderSocials 保存社交图标排序
func (a *API) ReorderSocials(c *gin.Context) {
	var payload socialReorderRequest
	if !bindJSON(c, &payload, "Invalid order payload") {
		return
	}

	items := make([]service.SocialOrder, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, service.SocialOrder{Platform: item.Platform, Order: item.Order})
	}

	if err := a.socials.Reorder(currentUserID(c), items); err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order saved"})
}

// GetDesign 返回原始外观属性及解析后的主题
func (a *API) GetDesign(c *gin.Context) {
	design, err := a.designs.Get(currentUserID(c))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"design": design,
		"theme":  service.ThemeFromAttributes(design),
	})
}

// PatchDesign 只写入提交的属性，未提交的保持不变
func (a *API) PatchDesign(c *gin.Context) {
	var payload map[string]*string
	if !bindJSON(c, &payload, "Invalid design payload") {
		return
	}

	userID := currentUserID(c)
	if err := a.designs.Upsert(userID, payload); err != nil {
		a.handleServiceError(c, err)
		return
	}

	design, err := a.designs.Get(userID)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"design": design,
		"theme":  service.ThemeFromAttributes(design),
	})
}

func profilePayload(profile db.Profile) gin.H {
	return gin.H{
		"displayName": profile.DisplayName,
		"username":    profile.Username,
		"bio":         profile.Bio,
		"avatarUrl":   profile.AvatarURL,
	}
}

func socialPayloads(socials []db.Social) []gin.H {
	items := make([]gin.H, 0, len(socials))
	for _, social := range socials {
		items = append(items, gin.H{
			"platform":  social.Platform,
			"label":     view.SocialLabel(social.Platform),
			"value":     social.Value,
			"order":     social.Order,
			"isVisible": social.IsVisible,
		})
	}
	return items
}
