// Package web 内嵌服务端渲染用到的模板
package web

import "embed"

//go:embed template/*.html
var Templates embed.FS
