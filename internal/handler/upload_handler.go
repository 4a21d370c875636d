package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/linkbio/internal/db"
	"github.com/linkbio/internal/imaging"
	"github.com/linkbio/internal/service"
)

type authorizeUploadRequest struct {
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type finalizeUploadRequest struct {
	ObjectKey string `json:"objectKey"`
}

type clearAvatarRequest struct {
	Confirmed bool `json:"confirmed"`
}

// ListAvatars 返回头像库，最新的在前
func (a *API) ListAvatars(c *gin.Context) {
	avatars, err := a.avatars.List(currentUserID(c))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatars": avatarPayloads(avatars), "mode": a.avatars.Mode()})
}

// AuthorizeAvatarUpload 生成上传目标：对象存储为预签名 PUT，本地为服务端上传地址
func (a *API) AuthorizeAvatarUpload(c *gin.Context) {
	var payload authorizeUploadRequest
	if !bindJSON(c, &payload, "Invalid upload request") {
		return
	}

	target, err := a.avatars.AuthorizeUpload(c.Request.Context(), currentUserID(c), payload.ContentType, payload.Size)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, target)
}

// FinalizeAvatarUpload 登记已直传的对象并设为当前头像
func (a *API) FinalizeAvatarUpload(c *gin.Context) {
	var payload finalizeUploadRequest
	if !bindJSON(c, &payload, "Invalid finalize request") {
		return
	}

	avatar, err := a.avatars.Finalize(c.Request.Context(), currentUserID(c), payload.ObjectKey)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar": avatarPayload(*avatar)})
}

// UploadAvatar 接收 multipart 上传（字段 file），key 由授权接口下发；
// 提供 x/y/width/height/zoom 时先裁剪再保存
func (a *API) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Missing file")
		return
	}

	crop, err := parseCropForm(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	body, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Unable to read file")
		return
	}
	defer body.Close()

	avatar, err := a.avatars.StoreUpload(c.Request.Context(), currentUserID(c), service.UploadInput{
		ObjectKey:   c.Query("key"),
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Body:        body,
		Crop:        crop,
	})
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar": avatarPayload(*avatar)})
}

// ActivateAvatar 将头像库中的一张设为当前头像
func (a *API) ActivateAvatar(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid avatar id")
		return
	}

	avatar, err := a.avatars.SetActive(currentUserID(c), id)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatarUrl": avatar.URL})
}

// ClearAvatar 移除当前头像，头像库中的图片保留
func (a *API) ClearAvatar(c *gin.Context) {
	var payload clearAvatarRequest
	if !bindJSON(c, &payload, "Invalid request") {
		return
	}

	if err := a.avatars.ClearActive(currentUserID(c), payload.Confirmed); err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatarUrl": nil})
}

// DeleteAvatar 从存储和头像库中删除
func (a *API) DeleteAvatar(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid avatar id")
		return
	}

	if err := a.avatars.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Avatar deleted"})
}

// parseCropForm 读取裁剪参数，四个区域字段全部缺省时返回 nil
func parseCropForm(c *gin.Context) (*service.CropInput, error) {
	fields := []string{"x", "y", "width", "height"}
	values := make([]float64, len(fields))
	present := 0
	for i, field := range fields {
		raw := strings.TrimSpace(c.PostForm(field))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid crop %s", field)
		}
		values[i] = value
		present++
	}
	if present == 0 {
		return nil, nil
	}
	if present != len(fields) {
		return nil, fmt.Errorf("crop requires x, y, width and height")
	}

	zoom := imaging.MinZoom
	if raw := strings.TrimSpace(c.PostForm("zoom")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid crop zoom")
		}
		zoom = parsed
	}

	return &service.CropInput{
		Area: imaging.Area{X: values[0], Y: values[1], Width: values[2], Height: values[3]},
		Zoom: zoom,
	}, nil
}

func avatarPayloads(avatars []db.Avatar) []gin.H {
	items := make([]gin.H, 0, len(avatars))
	for _, avatar := range avatars {
		items = append(items, avatarPayload(avatar))
	}
	return items
}

func avatarPayload(avatar db.Avatar) gin.H {
	return gin.H{
		"id":        avatar.ID,
		"objectKey": avatar.ObjectKey,
		"url":       avatar.URL,
		"createdAt": avatar.CreatedAt,
	}
}
