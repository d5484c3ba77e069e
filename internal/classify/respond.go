package classify

import "context"

// Responder generates a short reply conditioned on the classification.
// Implementations may call an external model; failure falls back to the
// canned per-intent reply.
type Responder interface {
	Respond(ctx context.Context, intent string, confidence float64, entities map[string][]string, text string) (string, error)
}

// ReviewDisclaimer is appended to every reply whose final confidence is
// below 0.5, regardless of which source generated the reply.
const ReviewDisclaimer = " (Your message has been flagged for manager review.)"

var cannedReplies = map[string]string{
	IntentTaskUpdate:        "Task update received. Your progress has been recorded.",
	IntentIncidentReport:    "Incident report received. Your manager has been notified. Please stay safe and share any additional details.",
	IntentPermissionRequest: "Permission request received. It has been forwarded to your manager for approval.",
	IntentAttendance:        "Attendance recorded. Thank you for checking in.",
	IntentQuestion:          "Your question has been routed to the support team. Someone will get back to you shortly.",
	IntentGeneral:           "Message received and logged for your manager's review.",
}

// generateResponse produces the reply text. The canned fallback keeps the
// pipeline response-complete when no responder is configured or the model
// call fails.
func generateResponse(ctx context.Context, r Responder, intent string, confidence float64, entities map[string][]string, text string) string {
	reply := ""
	if r != nil {
		if got, err := r.Respond(ctx, intent, confidence, entities, text); err == nil && got != "" {
			reply = got
		}
	}
	if reply == "" {
		reply = cannedReplies[intent]
		if reply == "" {
			reply = cannedReplies[IntentGeneral]
		}
	}
	if confidence < 0.5 {
		reply += ReviewDisclaimer
	}
	return reply
}
