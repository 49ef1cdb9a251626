// Package avgraph describes audio/video compositions as an immutable graph of
// ffmpeg filters and compiles that graph into a filter script.
//
// Streams are typed (video or audio) and point back at the Filter that
// produced them; an Object bundles streams in a declared order. Every
// operation (Concat, Overlay, ResizedBy, FadedOut, ...) returns a new Object
// and never touches its operands, so any subgraph can be shared freely.
// Filter keys are derived from the filter name, its sorted options, the keys
// of its inputs and the types of its outputs, which makes an Object's key a
// stable cache address for its rendering.
//
// Compile produces a deterministic instruction list with split/asplit
// inserted for fan-out and nullsink/anullsink for unused outputs. Renderer
// hands the result to ffmpeg as a -filter_complex_script and registers the
// output in the artifact store.
package avgraph
