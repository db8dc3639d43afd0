package policy

import "fmt"

// Denial is the error raised when a rule determines a statement violates
// configured policy. It aborts the statement; the host engine's own error
// machinery rolls back the surrounding transaction.
type Denial struct {
	// Rule names the rule that fired, e.g. "copy" or "create-role".
	Rule string
	// Object is the offending role or extension name, when one exists.
	Object string
	// Reason is the human-readable denial text reported to the session.
	Reason string
}

func (d *Denial) Error() string {
	if d.Object != "" {
		return fmt.Sprintf("%s: %q", d.Reason, d.Object)
	}
	return d.Reason
}
