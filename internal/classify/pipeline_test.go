package classify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubResponder struct {
	reply string
	err   error
	calls int
}

func (s *stubResponder) Respond(_ context.Context, _ string, _ float64, _ map[string][]string, _ string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func TestProcessTaskUpdateScenario(t *testing.T) {
	p := NewPipeline(nil, nil)
	res := p.Process(context.Background(), "Just finished the plumbing repair in Building A")

	if res.Intent != IntentTaskUpdate {
		t.Fatalf("intent = %s, want %s", res.Intent, IntentTaskUpdate)
	}
	if res.Confidence < highConfidence {
		t.Errorf("confidence = %v, want >= %v", res.Confidence, highConfidence)
	}
	up, ok := res.Action.(UpdateTaskProgress)
	if !ok {
		t.Fatalf("action = %T, want UpdateTaskProgress", res.Action)
	}
	if up.Progress != 100 || up.Status != "completed" {
		t.Errorf("got progress=%d status=%s, want 100/completed", up.Progress, up.Status)
	}
	if res.ManagerAttention {
		t.Error("confident task update should not require manager attention")
	}
	if res.Reply == "" {
		t.Error("reply must never be empty")
	}
	if strings.Contains(res.Reply, ReviewDisclaimer) {
		t.Error("confident result must not carry the review disclaimer")
	}
}

func TestProcessIncidentScenario(t *testing.T) {
	p := NewPipeline(nil, nil)
	res := p.Process(context.Background(), "There's a gas leak in the basement - urgent!")

	if res.Intent != IntentIncidentReport {
		t.Fatalf("intent = %s, want %s", res.Intent, IntentIncidentReport)
	}
	inc, ok := res.Action.(CreateIncident)
	if !ok {
		t.Fatalf("action = %T, want CreateIncident", res.Action)
	}
	if inc.Severity != "critical" {
		t.Errorf("severity = %s, want critical", inc.Severity)
	}
	if inc.Location != "basement" {
		t.Errorf("location = %q, want basement", inc.Location)
	}
	if !res.ManagerAttention {
		t.Error("incident report must require manager attention")
	}
	if got := res.Entities[EntityUrgency]; len(got) == 0 {
		t.Error("expected an urgency entity for an urgent report")
	}
}

func TestProcessLowConfidenceDisclaimer(t *testing.T) {
	p := NewPipeline(nil, nil)
	res := p.Process(context.Background(), "thanks")

	if res.Intent != IntentGeneral {
		t.Fatalf("intent = %s, want %s", res.Intent, IntentGeneral)
	}
	if _, ok := res.Action.(LogMessage); !ok {
		t.Fatalf("action = %T, want LogMessage", res.Action)
	}
	if !res.ManagerAttention {
		t.Error("sub-0.5 confidence must require manager attention")
	}
	if !strings.HasSuffix(res.Reply, ReviewDisclaimer) {
		t.Errorf("reply %q must end with the review disclaimer", res.Reply)
	}
}

func TestGenerateResponsePrefersResponder(t *testing.T) {
	r := &stubResponder{reply: "Got it, marking the repair complete."}
	got := generateResponse(context.Background(), r, IntentTaskUpdate, 0.75, nil, "finished the repair")
	if got != r.reply {
		t.Errorf("reply = %q, want responder output", got)
	}
	if r.calls != 1 {
		t.Errorf("responder called %d times, want 1", r.calls)
	}
}

func TestGenerateResponseFallsBackOnError(t *testing.T) {
	r := &stubResponder{err: errors.New("model unavailable")}
	got := generateResponse(context.Background(), r, IntentAttendance, 0.8, nil, "checking in")
	if got != cannedReplies[IntentAttendance] {
		t.Errorf("reply = %q, want canned attendance reply", got)
	}
}

func TestGenerateResponseDisclaimerOnResponderReply(t *testing.T) {
	r := &stubResponder{reply: "Noted."}
	got := generateResponse(context.Background(), r, IntentGeneral, 0.3, nil, "hmm")
	if got != "Noted."+ReviewDisclaimer {
		t.Errorf("reply = %q, want responder output plus disclaimer", got)
	}
}

func TestGenerateResponseUnknownIntentUsesGeneralReply(t *testing.T) {
	got := generateResponse(context.Background(), nil, "mystery", 0.9, nil, "???")
	if got != cannedReplies[IntentGeneral] {
		t.Errorf("reply = %q, want general canned reply", got)
	}
}

func TestResultEntityHits(t *testing.T) {
	p := NewPipeline(nil, nil)
	res := p.Process(context.Background(), "There's a gas leak in the basement - urgent!")
	hits := res.EntityHits()
	if len(hits) != 2 {
		t.Fatalf("hits = %v, want two entries", hits)
	}
	if hits[0] != "basement" || hits[1] != "urgent" {
		t.Errorf("hits = %v, want [basement urgent]", hits)
	}
}
