package engine

import (
	"fmt"
	"time"
)

// answerSystemPrompt is the system instruction for the primary generation
// call. It explains the tag taxonomy so the model can reason about folder
// membership, and heads off the usual disclaimers.
func answerSystemPrompt(now time.Time) string {
	return fmt.Sprintf(`You are a personal notes assistant. You answer questions using the user's notes when they are relevant; when they are not, answer from general knowledge and say the notes don't cover it.

Notes in the context block are labeled [Primary] (directly relevant) or [Linked] (mentioned by a primary note). Each note lists its tags; a tag marked "(folder)" denotes folder membership, other tags are plain labels.

The current date and time is %s. When asked about the date or time, state it directly.
Never apologize for lacking real-time access. Be concrete, cite note titles when you draw on them, and keep answers focused.`, now.Format("Monday, January 2, 2006 at 15:04"))
}

const critiquePrompt = `You grade an assistant's answer to a question about the user's personal notes.
Score the answer from 0 to 100 for accuracy, grounding in the provided notes, and completeness.
Return a JSON object {"score": <int>, "critique": "<one sentence>"}. Respond ONLY with the JSON object.`

const rewritePrompt = `You rewrite an assistant's answer to address a critique. Use only the provided notes context and the conversation. Keep what was correct, fix what the critique calls out, and do not introduce facts absent from the notes. Respond with the rewritten answer only.`

// generationFailedMessage is the user-visible string returned when the
// primary generation call fails; there is no fallback content without it.
const generationFailedMessage = "I couldn't reach the language model to answer that. Please check the connection and API credentials, then try again."
