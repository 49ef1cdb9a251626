// Package artifact implements the content-addressed cache every derived file
// in talkvid lives in.
//
// An artifact's key is a keyed BLAKE3 digest over its construction
// description (kind, literal parameters, operand keys), so equal descriptions
// always map to the same file and no artifact is ever built twice. Raw input
// files are keyed by content when small and by path, size and mtime when
// large. The Store materializes artifacts lazily through GetOrBuild, guards
// each key with a gofrs/flock advisory lock and publishes results with an
// atomic rename, so a file under its final name is always complete.
package artifact
