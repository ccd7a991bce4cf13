package leave

import (
	"sort"
	"strings"

	"github.com/warp/leave-engine/generic"
)

// Rule is one category's limit as resolved from a template.
// A nil Limit means the template names the category without bounding it.
type Rule struct {
	Name         string
	Limit        *generic.Amount
	CarryForward bool
}

// Limited reports whether the rule bounds usage.
func (r Rule) Limited() bool { return r.Limit != nil }

const limitFieldSuffix = "Limit"

// Rules flattens the template's three shapes into one ordered rule list:
// LeaveTypes in declared order, then Limits by sorted key, then "<name>Limit"
// fields by sorted key. A category already produced by an earlier shape is
// skipped, so the first declaration wins.
func (t *Template) Rules() []Rule {
	if t == nil {
		return nil
	}

	var rules []Rule
	seen := make(map[string]bool)
	add := func(r Rule) {
		key := CategoryKey(r.Name)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		rules = append(rules, r)
	}

	for _, lt := range t.LeaveTypes {
		r := Rule{Name: strings.TrimSpace(lt.Type), CarryForward: lt.CarryForward}
		switch {
		case lt.Limit != nil:
			r.Limit = limitOf(*lt.Limit)
		case lt.Days != nil:
			r.Limit = limitOf(*lt.Days)
		}
		add(r)
	}

	for _, name := range sortedKeys(t.Limits) {
		add(Rule{Name: name, Limit: limitOf(t.Limits[name])})
	}

	for _, field := range sortedKeys(t.Fields) {
		name, ok := strings.CutSuffix(field, limitFieldSuffix)
		if !ok {
			continue
		}
		add(Rule{Name: name, Limit: limitOf(t.Fields[field])})
	}

	return rules
}

// Find returns the first rule whose category matches.
func (t *Template) Find(category string) (Rule, bool) {
	for _, r := range t.Rules() {
		if SameCategory(r.Name, category) {
			return r, true
		}
	}
	return Rule{}, false
}

// CategoryNames lists the display names of every rule, in rule order.
func (t *Template) CategoryNames() []string {
	rules := t.Rules()
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Name)
	}
	return names
}

func limitOf(v float64) *generic.Amount {
	a := generic.Days(v)
	return &a
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
