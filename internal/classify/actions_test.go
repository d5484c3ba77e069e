package classify

import "testing"

func TestRouteActionTaskProgress(t *testing.T) {
	tests := []struct {
		text     string
		progress int
		status   string
	}{
		{"started on the wiring", 10, "in_progress"},
		{"about halfway through", 50, "in_progress"},
		{"almost there", 80, "in_progress"},
		{"finished the job", 100, "completed"},
		{"all wrapped up and done", 100, "completed"},
		{"working on it", 0, "in_progress"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			a := routeAction(IntentTaskUpdate, tt.text, nil)
			up, ok := a.(UpdateTaskProgress)
			if !ok {
				t.Fatalf("routeAction returned %T, want UpdateTaskProgress", a)
			}
			if up.Progress != tt.progress || up.Status != tt.status {
				t.Errorf("got progress=%d status=%s, want %d/%s", up.Progress, up.Status, tt.progress, tt.status)
			}
		})
	}
}

func TestRouteActionIncidentSeverity(t *testing.T) {
	tests := []struct {
		text     string
		severity string
	}{
		{"There's a gas leak in the basement - urgent!", "critical"},
		{"small fire near the generator", "critical"},
		{"serious safety concern on the roof", "high"},
		{"the ladder is broken", "medium"},
		{"minor scrape on the wall", "low"},
	}
	for _, tt := range tests {
		t.Run(tt.severity+"/"+tt.text, func(t *testing.T) {
			a := routeAction(IntentIncidentReport, tt.text, extractEntities(tt.text))
			inc, ok := a.(CreateIncident)
			if !ok {
				t.Fatalf("routeAction returned %T, want CreateIncident", a)
			}
			if inc.Severity != tt.severity {
				t.Errorf("severity = %s, want %s", inc.Severity, tt.severity)
			}
		})
	}
}

func TestRouteActionIncidentLocation(t *testing.T) {
	a := routeAction(IntentIncidentReport,
		"There's a gas leak in the basement - urgent!",
		extractEntities("There's a gas leak in the basement - urgent!"))
	inc := a.(CreateIncident)
	if inc.Location != "basement" {
		t.Errorf("location = %q, want %q", inc.Location, "basement")
	}
}

func TestSeverityFirstMatchWins(t *testing.T) {
	// "urgent" precedes "broken" in the table, so critical beats medium.
	a := routeAction(IntentIncidentReport, "the broken pipe is urgent", nil)
	if sev := a.(CreateIncident).Severity; sev != "critical" {
		t.Errorf("severity = %s, want critical", sev)
	}
}

func TestRouteActionPermissionCategory(t *testing.T) {
	tests := []struct {
		text     string
		category string
	}{
		{"requesting overtime for saturday", "overtime"},
		{"need access to the locked storage", "access"},
		{"can I borrow the company vehicle", "equipment"},
		{"requesting time off next week", "leave"},
		{"requesting a favor", "general"},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			a := routeAction(IntentPermissionRequest, tt.text, nil)
			req, ok := a.(CreatePermissionRequest)
			if !ok {
				t.Fatalf("routeAction returned %T, want CreatePermissionRequest", a)
			}
			if req.Category != tt.category {
				t.Errorf("category = %s, want %s", req.Category, tt.category)
			}
		})
	}
}

func TestRouteActionAttendance(t *testing.T) {
	tests := []struct {
		text  string
		event string
	}{
		{"check in please", "check_in"},
		{"leaving for the day", "check_out"},
		{"taking my lunch", "break_start"},
		{"back at it", "break_end"},
		{"morning", "check_in"}, // default when no keyword matches
	}
	for _, tt := range tests {
		t.Run(tt.event+"/"+tt.text, func(t *testing.T) {
			a := routeAction(IntentAttendance, tt.text, nil)
			att, ok := a.(RecordAttendance)
			if !ok {
				t.Fatalf("routeAction returned %T, want RecordAttendance", a)
			}
			if att.Event != tt.event {
				t.Errorf("event = %s, want %s", att.Event, tt.event)
			}
		})
	}
}

func TestRouteActionQuestionAndGeneral(t *testing.T) {
	if _, ok := routeAction(IntentQuestion, "where is the manual?", nil).(RouteToSupport); !ok {
		t.Error("question intent did not route to support")
	}
	if _, ok := routeAction(IntentGeneral, "hello", nil).(LogMessage); !ok {
		t.Error("general intent did not route to message log")
	}
}

func TestManagerAttention(t *testing.T) {
	tests := []struct {
		name     string
		intent   string
		conf     float64
		entities map[string][]string
		want     bool
	}{
		{"incident always flags", IntentIncidentReport, 0.9, nil, true},
		{"permission always flags", IntentPermissionRequest, 0.9, nil, true},
		{"low confidence flags", IntentGeneral, 0.3, nil, true},
		{"urgency entity flags", IntentTaskUpdate, 0.9, map[string][]string{EntityUrgency: {"asap"}}, true},
		{"confident task update does not flag", IntentTaskUpdate, 0.8, nil, false},
		{"boundary confidence does not flag", IntentAttendance, 0.5, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := managerAttention(tt.intent, tt.conf, tt.entities); got != tt.want {
				t.Errorf("managerAttention(%s, %v, %v) = %v, want %v", tt.intent, tt.conf, tt.entities, got, tt.want)
			}
		})
	}
}
