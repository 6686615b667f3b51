// Package answer produces grounded responses to customer questions.
//
// A Responder retrieves context passages for the question, assembles the
// prompt from the passages and the recent conversation, and asks a
// completion model for the reply. Every failure turns into a fixed apology
// that points the customer at the support line, so callers always have
// something to show.
package answer
