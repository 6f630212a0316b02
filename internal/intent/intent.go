// Package intent is the rule-based fallback classifier used when the
// language model is unreachable. It recognizes the five task
// operations from raw text with ordered pattern rules.
package intent

import (
	"regexp"
	"strings"
)

// Intent is a recognized task operation category.
type Intent string

const (
	IntentAddTask      Intent = "add_task"
	IntentListTasks    Intent = "list_tasks"
	IntentCompleteTask Intent = "complete_task"
	IntentDeleteTask   Intent = "delete_task"
	IntentUpdateTask   Intent = "update_task"
	IntentUnknown      Intent = "unknown"
)

// Args holds the free-text arguments extracted alongside an intent.
// Title is set for add; Identifier for complete/delete; OldTask and
// NewTitle for update. All are free-text phrases, not task IDs.
type Args struct {
	Title      string
	Identifier string
	OldTask    string
	NewTitle   string
}

// rule is one pattern record. Groups lists capture-group indexes to
// try for the primary argument, most specific first; the first
// non-empty one wins. Update rules use pair extraction instead.
type rule struct {
	intent Intent
	re     *regexp.Regexp
	groups []int
	pairs  [][2]int // update only: (old, new) group index pairs
}

// Rules are evaluated in order; the first matching pattern decides the
// intent. Category precedence is add, list, complete, delete, update.
// The patterns trade precision for availability: they will sometimes
// misfire but never error.
var rules = []rule{
	{intent: IntentAddTask, re: regexp.MustCompile(`(add|create|make|new)\s+(a\s+)?task\s+to\s+(.+)`), groups: []int{3}},
	{intent: IntentAddTask, re: regexp.MustCompile(`(add|create|make|new)\s+(a\s+)?(.+)\s+(as\s+a\s+task|to\s+my\s+tasks?)`), groups: []int{3}},
	{intent: IntentAddTask, re: regexp.MustCompile(`(i\s+need\s+to|i\s+want\s+to|to\s+do|todo)\s+(.+)`), groups: []int{2}},

	{intent: IntentListTasks, re: regexp.MustCompile(`(show|list|display|see|view)\s+(my\s+)?tasks?`)},
	{intent: IntentListTasks, re: regexp.MustCompile(`(what\s+do\s+i\s+have|what'?s\s+on\s+my\s+list|my\s+todo)`)},
	{intent: IntentListTasks, re: regexp.MustCompile(`(all\s+tasks?|my\s+tasks?)`)},

	{intent: IntentCompleteTask, re: regexp.MustCompile(`(complete|finish|done|completed|marked\s+as\s+done)\s+(.*)`), groups: []int{2}},
	{intent: IntentCompleteTask, re: regexp.MustCompile(`(i\s+finished|i\s+completed|i\s+did)\s+(.+)`), groups: []int{2}},
	{intent: IntentCompleteTask, re: regexp.MustCompile(`(mark\s+(.+)\s+as\s+done|complete\s+(.+))`), groups: []int{3, 2}},

	{intent: IntentDeleteTask, re: regexp.MustCompile(`(delete|remove|erase|get\s+rid\s+of)\s+(.+)`), groups: []int{2}},

	{intent: IntentUpdateTask, re: regexp.MustCompile(`(change|update|modify|rename)\s+(.+)\s+to\s+(.+)`), pairs: [][2]int{{2, 3}}},
	{intent: IntentUpdateTask, re: regexp.MustCompile(`(update\s+(.+)\s+to\s+(.+)|change\s+(.+)\s+to\s+(.+))`), pairs: [][2]int{{2, 3}, {4, 5}}},
}

// Detect classifies a message. Input is lowercased and trimmed before
// matching. No match yields IntentUnknown with empty Args.
func Detect(message string) (Intent, Args) {
	text := strings.ToLower(strings.TrimSpace(message))

	for _, r := range rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		var args Args
		switch r.intent {
		case IntentAddTask:
			args.Title = firstGroup(m, r.groups)
		case IntentCompleteTask:
			args.Identifier = firstGroup(m, r.groups)
		case IntentDeleteTask:
			args.Identifier = firstGroup(m, r.groups)
		case IntentUpdateTask:
			for _, p := range r.pairs {
				old := groupAt(m, p[0])
				newTitle := groupAt(m, p[1])
				if old != "" && newTitle != "" {
					args.OldTask = old
					args.NewTitle = newTitle
					break
				}
			}
		}
		return r.intent, args
	}

	return IntentUnknown, Args{}
}

// firstGroup returns the first non-empty capture group from the
// candidate indexes, trimmed.
func firstGroup(m []string, candidates []int) string {
	for _, i := range candidates {
		if g := groupAt(m, i); g != "" {
			return g
		}
	}
	return ""
}

func groupAt(m []string, i int) string {
	if i >= len(m) {
		return ""
	}
	return strings.TrimSpace(m[i])
}
