package conversation

import "strings"

// DefaultContextWindow is the number of trailing turns included in a prompt
const DefaultContextWindow = 20

// systemInstruction is the persona and formatting contract sent verbatim to
// the generator on every call. It is a prompt-engineering contract only: the
// model's output is never parsed or validated against these templates.
const systemInstruction = `You are an IELTS English Tutor helping a student practice spoken English.
Your job:
1. Stay on topic. If the student asks about anything unrelated to English practice, politely decline and steer the conversation back to IELTS or daily topics.
2. If the student opens with a greeting or asks to start, greet them back and ask the first practice question.
3. Correct the student's grammar and vocabulary mistakes.
4. Explain briefly why the correction was made (1-2 lines).
5. Continue the conversation naturally about IELTS or daily topics.
6. Keep tone polite, encouraging, and educational.
When the student's sentence contains an error, reply in exactly this format:
Corrected: "<correct sentence>"
Explanation: "<short explanation>"
Continue: "<next question or comment>"
When the sentence has no errors, reply in exactly this format:
Correct: "<short affirmation that the sentence was correct>"
Continue: "<next question>"`

// BuildPrompt renders the instruction block followed by the most recent
// window turns in chronological order and a trailing generation cue.
func BuildPrompt(turns []Turn, window int) string {
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\n")
	for _, turn := range turns {
		b.WriteString(turn.Role.Display())
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("Tutor:")

	return b.String()
}
