// Package web embeds the FanLink templates and static assets.
package web

import "embed"

// TemplatesFS contains the page layouts, pages and partials.
//
//go:embed all:templates
var TemplatesFS embed.FS

// StaticFS contains the stylesheet and browser scripts.
//
//go:embed all:static
var StaticFS embed.FS
