package classify

import (
	"context"
	"time"
)

// Result is the transient outcome of classifying one message. It lives for
// one message's processing; only the side effects of the executed action
// persist.
type Result struct {
	Intent           string
	Confidence       float64
	Entities         map[string][]string
	Action           Action
	ManagerAttention bool
	Reply            string
	Timestamp        time.Time
}

// Pipeline runs the three classification stages plus response generation.
// Both external dependencies are optional; with neither configured the
// pipeline is fully deterministic.
type Pipeline struct {
	secondary Secondary
	responder Responder
}

func NewPipeline(secondary Secondary, responder Responder) *Pipeline {
	return &Pipeline{secondary: secondary, responder: responder}
}

// Process classifies one message. It always returns a complete result: an
// intent, a confidence, an action and a non-empty reply.
func (p *Pipeline) Process(ctx context.Context, text string) *Result {
	intent, confidence := detectIntent(ctx, p.secondary, text)
	entities := extractEntities(text)
	action := routeAction(intent, text, entities)
	attention := managerAttention(intent, confidence, entities)
	reply := generateResponse(ctx, p.responder, intent, confidence, entities, text)

	return &Result{
		Intent:           intent,
		Confidence:       confidence,
		Entities:         entities,
		Action:           action,
		ManagerAttention: attention,
		Reply:            reply,
		Timestamp:        time.Now(),
	}
}

// EntityHits flattens the extracted entity literals for review records.
func (r *Result) EntityHits() []string {
	return flattenEntities(r.Entities)
}
