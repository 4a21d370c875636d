package service

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	WallpaperSolid    = "solid"
	WallpaperGradient = "gradient"

	ButtonStyleDefault = "default"
	ButtonStyleOutline = "outline"
	ButtonStyleGlass   = "glass"

	SocialIconsTop    = "top"
	SocialIconsBottom = "bottom"

	defaultSolidColor        = "#18181b"
	defaultGradientFrom      = "#18181b"
	defaultGradientTo        = "#09090b"
	defaultGradientDirection = "to bottom"
	defaultTextColor         = "#ffffff"
)

// 外观值会直接写入 style 属性，只接受颜色与方向的常见写法
var (
	colorPattern     = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]{3,20}|rgba?\(\s*[0-9.,%\s]+\)|hsla?\(\s*[0-9.,%deg\s]+\))$`)
	directionPattern = regexp.MustCompile(`^(to( (top|bottom|left|right)){1,2}|-?[0-9]{1,3}(\.[0-9]+)?deg)$`)
	legacyGradient   = regexp.MustCompile(`(?i)linear-gradient\(([^,]+),\s*([^,]+),\s*([^)]+)\)`)
)

// Theme 是外观属性的强类型视图，未识别或非法的值回退为默认值
type Theme struct {
	WallpaperType     string `json:"wallpaperType"`
	SolidColor        string `json:"solidColor"`
	GradientFrom      string `json:"gradientFrom"`
	GradientTo        string `json:"gradientTo"`
	GradientDirection string `json:"gradientDirection"`
	ButtonStyle       string `json:"buttonStyle"`
	TextColor         string `json:"textColor"`
	SocialPosition    string `json:"socialPosition"`
}

// DefaultTheme 返回未配置任何属性时的外观
func DefaultTheme() Theme {
	return Theme{
		WallpaperType:     WallpaperSolid,
		SolidColor:        defaultSolidColor,
		GradientFrom:      defaultGradientFrom,
		GradientTo:        defaultGradientTo,
		GradientDirection: defaultGradientDirection,
		ButtonStyle:       ButtonStyleDefault,
		TextColor:         defaultTextColor,
		SocialPosition:    SocialIconsTop,
	}
}

// ThemeFromAttributes 从原始属性表解析外观。
// 没有任何 wallpaper.* 属性时，兼容旧版单一的 background 属性。
func ThemeFromAttributes(attributes map[string]*string) Theme {
	theme := DefaultTheme()

	hasWallpaper := false
	for key := range attributes {
		if strings.HasPrefix(key, "wallpaper.") {
			hasWallpaper = true
			break
		}
	}

	if hasWallpaper {
		switch attr(attributes, "wallpaper.type") {
		case WallpaperGradient:
			theme.WallpaperType = WallpaperGradient
		default:
			theme.WallpaperType = WallpaperSolid
		}
		theme.SolidColor = colorOr(attr(attributes, "wallpaper.solid_color"), defaultSolidColor)
		theme.GradientFrom = colorOr(attr(attributes, "wallpaper.gradient_from"), defaultGradientFrom)
		theme.GradientTo = colorOr(attr(attributes, "wallpaper.gradient_to"), defaultGradientTo)
		theme.GradientDirection = directionOr(attr(attributes, "wallpaper.gradient_direction"), defaultGradientDirection)
	} else if legacy := attr(attributes, "background"); legacy != "" {
		bg := ParseBackground(legacy)
		theme.WallpaperType = bg.Type
		theme.SolidColor = bg.Solid
		theme.GradientFrom = bg.From
		theme.GradientTo = bg.To
		theme.GradientDirection = bg.Direction
	}

	switch style := attr(attributes, "button.style"); style {
	case ButtonStyleOutline, ButtonStyleGlass:
		theme.ButtonStyle = style
	}

	theme.TextColor = colorOr(attr(attributes, "text.color"), defaultTextColor)

	if attr(attributes, "social_icons.position") == SocialIconsBottom {
		theme.SocialPosition = SocialIconsBottom
	}

	return theme
}

// Background 渲染 CSS background 取值
func (t Theme) Background() string {
	if t.WallpaperType == WallpaperGradient {
		return fmt.Sprintf("linear-gradient(%s, %s, %s)", t.GradientDirection, t.GradientFrom, t.GradientTo)
	}
	return t.SolidColor
}

// Background 为解析旧版 background 字符串的结果
type Background struct {
	Type      string
	Direction string
	From      string
	To        string
	Solid     string
}

// ParseBackground 解析 linear-gradient(dir, from, to) 或十六进制颜色，无法识别的部分使用默认值
func ParseBackground(value string) Background {
	bg := Background{
		Type:      WallpaperSolid,
		Direction: defaultGradientDirection,
		From:      defaultGradientFrom,
		To:        defaultGradientTo,
		Solid:     defaultSolidColor,
	}

	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(strings.ToLower(trimmed), "linear-gradient") {
		bg.Type = WallpaperGradient
		if match := legacyGradient.FindStringSubmatch(trimmed); match != nil {
			bg.Direction = directionOr(strings.TrimSpace(match[1]), defaultGradientDirection)
			bg.From = colorOr(strings.TrimSpace(match[2]), defaultGradientFrom)
			bg.To = colorOr(strings.TrimSpace(match[3]), defaultGradientTo)
		}
		return bg
	}

	if strings.HasPrefix(trimmed, "#") {
		bg.Solid = colorOr(trimmed, defaultSolidColor)
	}
	return bg
}

func attr(attributes map[string]*string, key string) string {
	value, ok := attributes[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func colorOr(value, fallback string) string {
	if value != "" && colorPattern.MatchString(value) {
		return value
	}
	return fallback
}

func directionOr(value, fallback string) string {
	if value != "" && directionPattern.MatchString(value) {
		return value
	}
	return fallback
}
