package grove

// ruleStore keeps the declared rules keyed by normalised identifier.
// Effective rules are computed on every lookup so that rules added between
// requests are always observed.
type ruleStore struct {
	rules map[string]Rule
}

func newRuleStore() *ruleStore {
	return &ruleStore{rules: make(map[string]Rule)}
}

func (s *ruleStore) add(id string, r Rule) {
	key := Normalize(id)
	s.rules[key] = merge(s.rules[key], r)
}

// effective merges, in increasing priority, the wildcard rule, the rule of
// the nearest ancestor that has one and the rule declared for id itself.
// Ancestor rules that redirect with InstanceOf, or that opt out with
// Inherit(false), are not inherited.
func (s *ruleStore) effective(id string, ancestors func(string) []string) Rule {
	key := Normalize(id)

	var out Rule
	if key != Wildcard {
		if w, ok := s.rules[Wildcard]; ok {
			out = merge(out, w)
		}
	}

	if key != Wildcard && !IsVirtual(key) && ancestors != nil {
		for _, a := range ancestors(key) {
			if r, ok := s.rules[Normalize(a)]; ok && r.Inherits() && !r.InstanceOf.Set {
				out = merge(out, r)
				break
			}
		}
	}

	if r, ok := s.rules[key]; ok {
		out = merge(out, r)
	}
	return out
}
