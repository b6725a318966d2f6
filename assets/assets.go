// Package assets embeds the map document template and its static parts.
package assets

import _ "embed"

// MapTemplate is the text/template of the standalone map document.
//
//go:embed map.html.tpl
var MapTemplate string

// MapCSS is inlined into the map document.
//
//go:embed map.css
var MapCSS string

// MapJS draws the markers; it reads window.MAP_CONFIG and window.MAP_STOPS.
//
//go:embed map.js
var MapJS string

// Favicon is inlined as a data URI and served by the server.
//
//go:embed favicon.svg
var Favicon []byte
