package models

import "time"

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorHandling selects the batch-wide policy applied when an item fails.
type ErrorHandling string

const (
	PolicyFailFast        ErrorHandling = "fail_fast"
	PolicyContinueOnError ErrorHandling = "continue_on_error"
	PolicyRetryFailed     ErrorHandling = "retry_failed"
)

type BatchSettings struct {
	MaxConcurrent int           `json:"max_concurrent" binding:"omitempty,min=1,max=10"`
	ErrorHandling ErrorHandling `json:"error_handling" binding:"omitempty,oneof=fail_fast continue_on_error retry_failed"`
}

// OutputOptions carries the caller's naming and materialization choices.
type OutputOptions struct {
	SaveToFile     bool           `json:"save_to_file"`
	Directory      string         `json:"directory"`
	NamingStrategy NamingStrategy `json:"naming_strategy" binding:"omitempty,oneof=timestamp prompt explicit content_hash"`
	OrganizeBy     OrganizeBy     `json:"organize_by" binding:"omitempty,oneof=none date aspect_ratio quality"`
	Conflict       ConflictMode   `json:"on_conflict" binding:"omitempty,oneof=auto_rename overwrite skip"`
	Prefix         string         `json:"prefix"`
	Filename       string         `json:"filename"`
	Format         string         `json:"format" binding:"omitempty,oneof=png jpeg webp"`
	Quality        string         `json:"quality" binding:"omitempty,oneof=low medium high"`
	Background     string         `json:"background" binding:"omitempty,oneof=transparent opaque auto"`
	Thumbnail      bool           `json:"thumbnail"`
}

type EditImageRequest struct {
	Image    ImageReference `json:"image" binding:"required"`
	Prompt   string         `json:"prompt" binding:"required"`
	EditType EditType       `json:"edit_type" binding:"omitempty,oneof=edit inpaint variation style_transfer background_removal"`
	Strength float64        `json:"strength" binding:"omitempty,min=0,max=1"`
	Output   OutputOptions  `json:"output"`
}

type BatchEditRequest struct {
	Images     []ImageReference `json:"images" binding:"required,min=1,max=50,dive"`
	EditPrompt string           `json:"edit_prompt" binding:"required"`
	EditType   EditType         `json:"edit_type" binding:"omitempty,oneof=edit inpaint variation style_transfer background_removal"`
	Strength   float64          `json:"strength" binding:"omitempty,min=0,max=1"`
	Batch      BatchSettings    `json:"batch_settings"`
	Output     OutputOptions    `json:"output"`
}

type HealthCheck struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}
