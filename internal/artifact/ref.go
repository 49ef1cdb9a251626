package artifact

// Ref points at a materialized artifact.
type Ref struct {
	Key  Key
	Path string
}
