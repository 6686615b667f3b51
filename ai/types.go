package ai

// Prompt is the input of a completion call.
type Prompt struct {
	// System carries the assistant's standing instructions.
	System string

	// Context carries retrieved reference material. It is sent as a second
	// system message when non-empty.
	Context string

	// User is the end user's turn, including any conversation history.
	User string
}
