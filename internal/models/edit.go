package models

// EditType selects the kind of transformation the remote model applies.
type EditType string

const (
	EditTypeGeneral       EditType = "edit"
	EditTypeInpaint       EditType = "inpaint"
	EditTypeVariation     EditType = "variation"
	EditTypeStyleTransfer EditType = "style_transfer"
	EditTypeRemoveBG      EditType = "background_removal"
)

func (t EditType) IsValid() bool {
	switch t {
	case EditTypeGeneral, EditTypeInpaint, EditTypeVariation, EditTypeStyleTransfer, EditTypeRemoveBG:
		return true
	}
	return false
}

// EditJob is one (image, prompt, edit-type) unit of work within a batch.
// Jobs are created per batch item and never mutated after creation.
type EditJob struct {
	Reference  ImageReference
	Prompt     string
	EditType   EditType
	Strength   float64
	Format     string
	Quality    string
	Background string
}

// EditOutcome is the normalized result of one executor invocation, either a
// success carrying the edited bytes or a failure carrying a stable kind.
type EditOutcome struct {
	OK            bool      `json:"ok"`
	Bytes         []byte    `json:"-"`
	RevisedPrompt string    `json:"revised_prompt,omitempty"`
	ErrorKind     ErrorKind `json:"error_kind,omitempty"`
	Message       string    `json:"message,omitempty"`
	ElapsedMS     int64     `json:"elapsed_ms"`
}

// Failure builds a failed outcome from an error, preserving its kind.
func Failure(err error, elapsedMS int64) EditOutcome {
	return EditOutcome{
		OK:        false,
		ErrorKind: KindOf(err),
		Message:   err.Error(),
		ElapsedMS: elapsedMS,
	}
}
