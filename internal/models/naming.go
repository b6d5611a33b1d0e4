package models

// NamingStrategy selects how the base filename of a materialized result is
// computed.
type NamingStrategy string

const (
	NameByTimestamp   NamingStrategy = "timestamp"
	NameByPrompt      NamingStrategy = "prompt"
	NameExplicit      NamingStrategy = "explicit"
	NameByContentHash NamingStrategy = "content_hash"
)

// OrganizeBy selects the subdirectory layout under the base directory.
type OrganizeBy string

const (
	OrganizeNone      OrganizeBy = "none"
	OrganizeByDate    OrganizeBy = "date"
	OrganizeByAspect  OrganizeBy = "aspect_ratio"
	OrganizeByQuality OrganizeBy = "quality"
)

// ConflictMode selects what happens when the computed path already exists.
// The default is auto_rename; overwriting must always be asked for.
type ConflictMode string

const (
	ConflictAutoRename ConflictMode = "auto_rename"
	ConflictOverwrite  ConflictMode = "overwrite"
	ConflictSkip       ConflictMode = "skip"
)

// NamingPolicy is the read-only set of naming and layout preferences shared
// by all items of a batch.
type NamingPolicy struct {
	Strategy      NamingStrategy
	OrganizeBy    OrganizeBy
	Conflict      ConflictMode
	BaseDirectory string
	Prefix        string
	ExplicitName  string
	Extension     string
	Quality       string
	Thumbnail     bool
}
