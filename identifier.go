package grove

import "strings"

// Wildcard is the identifier of the default rule. When present it is the
// base of every other rule lookup.
const Wildcard = "*"

// Normalize returns the canonical form of an identifier: leading path or
// namespace separators are removed and the result is lower-cased, so that
// `\App\Mailer`, `/app/mailer` and `app\mailer` all name the same rule.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if id == Wildcard {
		return id
	}
	return strings.ToLower(strings.TrimLeft(id, `\/`))
}

// IsVirtual reports whether id names a virtual rule (`$Name` or `[Name]`).
// Virtual identifiers share the rule keyspace with type identifiers but are
// never resolved through the introspector.
func IsVirtual(id string) bool {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "$") {
		return true
	}
	return len(id) > 2 && strings.HasPrefix(id, "[") && strings.HasSuffix(id, "]")
}
