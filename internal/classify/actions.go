package classify

import "strings"

// Action is a closed set of backend operations, one per intent. Each variant
// carries exactly the fields its executor handler needs; the executor
// dispatches over the concrete types, so an unhandled variant is visible in
// the type switch rather than hidden behind a map lookup.
type Action interface {
	Name() string
	isAction()
}

type UpdateTaskProgress struct {
	Progress int
	Status   string
}

type CreateIncident struct {
	Severity string
	Location string
}

type CreatePermissionRequest struct {
	Category string
}

type RecordAttendance struct {
	Event string
}

type RouteToSupport struct{}

type LogMessage struct{}

func (UpdateTaskProgress) Name() string      { return "update_task_progress" }
func (CreateIncident) Name() string          { return "create_incident_record" }
func (CreatePermissionRequest) Name() string { return "create_permission_request" }
func (RecordAttendance) Name() string        { return "update_attendance_record" }
func (RouteToSupport) Name() string          { return "route_to_support" }
func (LogMessage) Name() string              { return "log_general_message" }

func (UpdateTaskProgress) isAction()      {}
func (CreateIncident) isAction()          {}
func (CreatePermissionRequest) isAction() {}
func (RecordAttendance) isAction()        {}
func (RouteToSupport) isAction()          {}
func (LogMessage) isAction()              {}

type keywordValue struct {
	keyword string
	value   string
}

type keywordProgress struct {
	keyword  string
	progress int
}

// Ordered tables: first match wins, and slices keep iteration deterministic
// where a map would not.

var progressKeywords = []keywordProgress{
	{"started", 10},
	{"begun", 15},
	{"beginning", 10},
	{"progress", 50},
	{"halfway", 50},
	{"almost", 80},
	{"completed", 100},
	{"finished", 100},
	{"done", 100},
}

var severityKeywords = []keywordValue{
	{"emergency", "critical"},
	{"urgent", "critical"},
	{"critical", "critical"},
	{"serious", "high"},
	{"danger", "high"},
	{"safety", "high"},
	{"injury", "high"},
	{"fire", "critical"},
	{"gas", "critical"},
	{"problem", "medium"},
	{"issue", "medium"},
	{"broken", "medium"},
}

var permissionKeywords = []keywordValue{
	{"overtime", "overtime"},
	{"extra hours", "overtime"},
	{"weekend", "overtime"},
	{"holiday", "overtime"},
	{"access", "access"},
	{"restricted", "access"},
	{"locked", "access"},
	{"secure", "access"},
	{"equipment", "equipment"},
	{"machine", "equipment"},
	{"tool", "equipment"},
	{"vehicle", "equipment"},
	{"leave", "leave"},
	{"time off", "leave"},
	{"sick", "leave"},
	{"vacation", "leave"},
}

var attendanceKeywords = []keywordValue{
	{"check in", "check_in"},
	{"arrived", "check_in"},
	{"here", "check_in"},
	{"present", "check_in"},
	{"on site", "check_in"},
	{"check out", "check_out"},
	{"leaving", "check_out"},
	{"finished", "check_out"},
	{"going home", "check_out"},
	{"break", "break_start"},
	{"lunch", "break_start"},
	{"rest", "break_start"},
	{"back", "break_end"},
	{"return", "break_end"},
	{"resume", "break_end"},
}

// routeAction maps the final intent to its action variant, deriving the
// variant fields from the message text and extracted entities.
func routeAction(intent, text string, entities map[string][]string) Action {
	lower := strings.ToLower(text)

	switch intent {
	case IntentTaskUpdate:
		progress := 0
		status := "in_progress"
		for _, kw := range progressKeywords {
			if strings.Contains(lower, kw.keyword) {
				progress = kw.progress
				if progress == 100 {
					status = "completed"
				}
				break
			}
		}
		return UpdateTaskProgress{Progress: progress, Status: status}

	case IntentIncidentReport:
		severity := "low"
		for _, kw := range severityKeywords {
			if strings.Contains(lower, kw.keyword) {
				severity = kw.value
				break
			}
		}
		location := ""
		if locs := entities[EntityLocation]; len(locs) > 0 {
			location = locs[0]
		}
		return CreateIncident{Severity: severity, Location: location}

	case IntentPermissionRequest:
		category := "general"
		for _, kw := range permissionKeywords {
			if strings.Contains(lower, kw.keyword) {
				category = kw.value
				break
			}
		}
		return CreatePermissionRequest{Category: category}

	case IntentAttendance:
		event := "check_in"
		for _, kw := range attendanceKeywords {
			if strings.Contains(lower, kw.keyword) {
				event = kw.value
				break
			}
		}
		return RecordAttendance{Event: event}

	case IntentQuestion:
		return RouteToSupport{}

	default:
		return LogMessage{}
	}
}

// managerAttention flags messages warranting human review. The flag is
// metadata alongside the action, never a gate on executing it.
func managerAttention(intent string, confidence float64, entities map[string][]string) bool {
	if intent == IntentIncidentReport || intent == IntentPermissionRequest {
		return true
	}
	if confidence < 0.5 {
		return true
	}
	return len(entities[EntityUrgency]) > 0
}
