package pipeline

import "github.com/povarna/generative-ai-agents/uni-guard/internal/models"

const (
	messageRegulatedID   = "Your question contains a social security number. Please remove it and ask again."
	messageInjection     = "Your question could not be processed. Please rephrase it as a plain question about courses, students or faculty."
	messagePIIExtraction = "I can't share personal data of students or staff in bulk."
	messageMalformed     = "Please ask a short, clear question about the university."
	messageOutputBlocked = "I couldn't produce a reliable answer from the university records. Please rephrase your question."
	messageNoData        = "No matching university data is available right now. Please try again later."
	messageUnavailable   = "The assistant is temporarily unavailable. Please try again in a moment."
	messageCancelled     = "The request was cancelled."
	messageInputDefault  = "Your question could not be processed."
)

// inputBlockedMessage picks the message for the first reason. Messages
// never quote the query.
func inputBlockedMessage(reasons []models.ReasonCode) string {
	if len(reasons) == 0 {
		return messageInputDefault
	}

	switch reasons[0] {
	case models.ReasonRegulatedIDPresent:
		return messageRegulatedID
	case models.ReasonInjectionSuspected:
		return messageInjection
	case models.ReasonPIIExtractionSuspected:
		return messagePIIExtraction
	case models.ReasonMalformedInput:
		return messageMalformed
	default:
		return messageInputDefault
	}
}
