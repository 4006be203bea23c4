package driven

// PromptStore returns prompt templates by name. User overrides take
// precedence over the templates built into the binary.
type PromptStore interface {
	// Load returns the named template, or an error for an unknown name.
	Load(name string) (string, error)

	// Reload drops cached templates so edits on disk are picked up.
	Reload()
}

// Prompt names.
const (
	// PromptSystem is sent as the system message. It has no placeholders.
	PromptSystem = "system"

	// PromptAnswer takes three %s: the numbered context, the question and
	// the mode instruction.
	PromptAnswer = "answer"

	PromptModeBrief    = "mode_brief"
	PromptModeClinical = "mode_clinical"
	PromptModeDetailed = "mode_detailed"
)

// PromptStoreAware is implemented by services whose prompts can be replaced.
// Without a store they use the templates compiled into them.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}
