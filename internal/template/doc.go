// Package template edits SVG slide templates and renders them with Inkscape.
//
// A Template is immutable: WithText, Without, WithImage and Resized return a
// derived copy whose key chains the parent's key with the edit. The Renderer
// caches rasterized elements (.png) and element geometry (.sizes) under
// those keys, so repeated runs only call Inkscape for templates that changed.
package template
