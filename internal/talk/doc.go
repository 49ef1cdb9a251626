// Package talk turns a YAML talk manifest into a composed video graph.
//
// The manifest names an SVG template, the speaker recording (a glob, or a
// directory of camcorder files), an optional screen grab and the texts shown
// on the slides. Build fills the template, lays out the recordings, appends a
// closing slide with a QR code of the talk URL and returns the Object for
// the renderer.
package talk
