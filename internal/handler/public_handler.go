package handler

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/linkbio/internal/service"
	"github.com/linkbio/internal/view"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

const publicTemplate = "profile.html"

// publicSocialView 为公开页中的单个社交图标
type publicSocialView struct {
	Platform string
	Label    string
	URL      string
	Icon     template.HTML
}

// ShowProfile 渲染公开主页。尚未创建管理员时返回 404
func (a *API) ShowProfile(c *gin.Context) {
	profile, err := a.loadOwnerProfile()
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.HTML(http.StatusNotFound, publicTemplate, gin.H{"notFound": true, "title": "No profile found"})
			return
		}
		a.handleServiceError(c, err)
		return
	}

	bio, err := renderBio(profile.Bio)
	if err != nil {
		bio = template.HTML(template.HTMLEscapeString(derefString(profile.Bio)))
	}

	socials := make([]publicSocialView, 0, len(profile.Socials))
	for _, social := range profile.Socials {
		socials = append(socials, publicSocialView{
			Platform: social.Platform,
			Label:    view.SocialLabel(social.Platform),
			URL:      social.URL,
			Icon:     view.SocialIconSVG(social.Platform),
		})
	}

	c.HTML(http.StatusOK, publicTemplate, gin.H{
		"title":      profile.DisplayName,
		"profile":    profile,
		"bio":        bio,
		"socials":    socials,
		"links":      profile.Links,
		"theme":      profile.Theme,
		"background": template.CSS(profile.Theme.Background()),
		"textColor":  template.CSS(profile.Theme.TextColor),
		"initials":   initials(profile.DisplayName),
		"tracking":   a.tracking,
	})
}

// PublicProfile 以 JSON 返回公开页读模型
func (a *API) PublicProfile(c *gin.Context) {
	profile, err := a.loadOwnerProfile()
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, http.StatusNotFound, "No profile found")
			return
		}
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (a *API) loadOwnerProfile() (*service.PublicProfile, error) {
	ownerID, err := a.profiles.Owner()
	if err != nil {
		return nil, err
	}
	return a.profiles.LoadPublic(ownerID)
}

// renderBio 把简介按 Markdown 渲染并清洗，空简介返回空
func renderBio(bio *string) (template.HTML, error) {
	content := strings.TrimSpace(derefString(bio))
	if content == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes())), nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// initials 取显示名称前两个字符作为无头像时的占位
func initials(name string) string {
	runes := []rune(strings.TrimSpace(name))
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}
