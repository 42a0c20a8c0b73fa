package ai

import (
	"strings"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
)

// persona is the assistant's base system prompt.
const persona = `You are Vera, a helpful AI assistant integrated into the Vera Desktop application. 
You have access to the content of the webpage the user is currently viewing. 
When users ask questions, you should consider the page context and provide relevant, helpful answers.
Be conversational, friendly, and concise in your responses.`

// jobSearchInstructions specializes the assistant for job-hunting spaces.
const jobSearchInstructions = `

You are a specialized AI assistant for job searching. Your primary goal is to help the user with job applications, resume analysis, and interview preparation related to the current webpage content. Use the provided personal data (like resume information) to tailor your responses. Focus on generating relevant content like cover letters, evaluating job fit, and suggesting interview questions.`

// SystemPrompt assembles the system message for a turn: persona, then the
// page context and the space's personal data, then any specialization the
// space's chatbot type asks for.
func SystemPrompt(sp *types.Space, pageContext string) string {
	var b strings.Builder
	b.WriteString(persona)

	context := pageContext
	if sp != nil && sp.PersonalData != "" {
		context += "\n\nPersonal Data for this Pod:\n" + sp.PersonalData
	}
	if context != "" {
		b.WriteString("\n\nCurrent page context:\n")
		b.WriteString(context)
	}

	if sp != nil && sp.ChatbotType == types.ChatbotJobSearch {
		b.WriteString(jobSearchInstructions)
	}
	return b.String()
}
