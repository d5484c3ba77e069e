// Package classify implements the per-message pipeline: intent detection,
// entity extraction, action routing and response generation. The pipeline
// never fails; every external dependency degrades to a deterministic
// fallback.
package classify

import (
	"context"
	"regexp"
	"strings"
)

// Intent labels. Order in ruleCategories doubles as the tie-break order.
const (
	IntentTaskUpdate        = "task_update"
	IntentIncidentReport    = "incident_report"
	IntentPermissionRequest = "permission_request"
	IntentAttendance        = "attendance"
	IntentQuestion          = "question"
	IntentGeneral           = "general"
)

const (
	// highConfidence accepts the rule-based result without consulting the
	// secondary classifier.
	highConfidence = 0.7
	// fallbackCap bounds the confidence when the secondary classifier was
	// needed but unavailable.
	fallbackCap = 0.3
	// generalConfidence is reported when no rule pattern matches at all.
	generalConfidence = 0.5
)

// Secondary is a probabilistic classifier consulted when the rule-based
// score is below the high-confidence threshold. Implementations must return
// one label from the menu and a confidence in [0,1].
type Secondary interface {
	Classify(ctx context.Context, text string, menu []string) (intent string, confidence float64, err error)
}

type ruleCategory struct {
	name     string
	patterns []*regexp.Regexp
}

func mustPatterns(exprs ...string) []*regexp.Regexp {
	ps := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		ps[i] = regexp.MustCompile(e)
	}
	return ps
}

// Categories are evaluated in this fixed order; on equal scores the earlier
// category wins, keeping classification deterministic.
var ruleCategories = []ruleCategory{
	{IntentTaskUpdate, mustPatterns(
		`\b(finished|completed|complete|done|wrapped up)\b`,
		`\b(started|starting|begun|beginning|working on|in progress|halfway|almost)\b`,
		`\b(task|job|work\w*|repair\w*|fix\w*|install\w*|maintenance)\b`,
		`\b(just|now|today|this morning|update|status)\b`,
	)},
	{IntentIncidentReport, mustPatterns(
		`\b(leak\w*|fire|smoke|gas|spill\w*|flood\w*|chemical)\b`,
		`\b(urgent\w*|emergency|danger\w*|critical|serious|unsafe)\b`,
		`\b(accident|injur\w*|hazard\w*|broken|damaged?|hurt|incident)\b`,
		`\b(basement|building|floor|site|area|room|roof)\b`,
	)},
	{IntentPermissionRequest, mustPatterns(
		`\b(permission|permit|approval|approve\w*|authoriz\w*)\b`,
		`\b(can i|could i|may i|allowed|request\w*)\b`,
		`\b(overtime|extra hours|weekend|holiday|leave|time off|vacation|sick)\b`,
		`\b(access|restricted|locked|secure area|keys?)\b`,
	)},
	{IntentAttendance, mustPatterns(
		`\b(check(ed|ing)? in|check(ed|ing)? out|clock(ed|ing)? (in|out))\b`,
		`\b(arrived|here|present|on site|leaving|going home)\b`,
		`\b(break|lunch|rest(ing)?|resum\w*|returning)\b`,
		`\b(attendance|shift|late|early)\b`,
	)},
	{IntentQuestion, mustPatterns(
		`\?`,
		`\b(what|when|where|who|why|how|which)\b`,
		`\b(help|question|wondering|confused|explain)\b`,
	)},
}

// IntentMenu is the fixed category list offered to the secondary classifier.
var IntentMenu = []string{
	IntentTaskUpdate,
	IntentIncidentReport,
	IntentPermissionRequest,
	IntentAttendance,
	IntentQuestion,
	IntentGeneral,
}

// classifyRules scores each category as matched patterns over total patterns
// against the lower-cased text. No match at all yields general at 0.5.
func classifyRules(text string) (string, float64) {
	lower := strings.ToLower(text)

	best := IntentGeneral
	bestScore := 0.0
	for _, cat := range ruleCategories {
		matched := 0
		for _, p := range cat.patterns {
			if p.MatchString(lower) {
				matched++
			}
		}
		score := float64(matched) / float64(len(cat.patterns))
		if score > bestScore {
			best = cat.name
			bestScore = score
		}
	}
	if bestScore == 0 {
		return IntentGeneral, generalConfidence
	}
	return best, bestScore
}

// detectIntent runs the rule classifier and, below the high-confidence
// threshold, the secondary classifier. The higher-confidence candidate wins;
// ties favor the rules. Secondary failure keeps the rule result with its
// confidence capped, never surfacing an error.
func detectIntent(ctx context.Context, sec Secondary, text string) (string, float64) {
	intent, conf := classifyRules(text)
	if conf >= highConfidence {
		return intent, conf
	}
	if sec == nil {
		return intent, min(conf, fallbackCap)
	}

	secIntent, secConf, err := sec.Classify(ctx, text, IntentMenu)
	if err != nil {
		return intent, min(conf, fallbackCap)
	}
	if secConf < 0 {
		secConf = 0
	}
	if secConf > 1 {
		secConf = 1
	}
	if !validIntent(secIntent) {
		return intent, min(conf, fallbackCap)
	}
	if secConf > conf {
		return secIntent, secConf
	}
	return intent, conf
}

func validIntent(intent string) bool {
	for _, m := range IntentMenu {
		if m == intent {
			return true
		}
	}
	return false
}
