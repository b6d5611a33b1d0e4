package models

// ReferenceKind discriminates the three ways an input image can be supplied.
type ReferenceKind string

const (
	RefRemoteURL  ReferenceKind = "remote_url"
	RefInlineData ReferenceKind = "inline_data"
	RefLocalPath  ReferenceKind = "local_path"
)

// ImageReference is a tagged reference to an input image. It is immutable
// once constructed and resolved exactly once per batch item.
type ImageReference struct {
	Kind  ReferenceKind `json:"kind" binding:"required,oneof=remote_url inline_data local_path"`
	Value string        `json:"value" binding:"required"`
}

// Display returns a log-friendly form of the reference. Inline payloads are
// truncated so base64 blobs never end up in log lines.
func (r ImageReference) Display() string {
	if r.Kind == RefInlineData && len(r.Value) > 32 {
		return string(r.Kind) + ":" + r.Value[:32] + "..."
	}
	return string(r.Kind) + ":" + r.Value
}
