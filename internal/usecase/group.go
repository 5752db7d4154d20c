// File: internal/usecase/group.go
package usecase

import (
	"strings"

	"interpretation-broker/internal/domain/model"
)

const maxGroupNameLen = 99

// GroupNameFor derives the delivery-group name for a user's live
// connections. It is keyed on the immutable user id rather than any
// printable identity, so renames and email changes never strand a
// subscriber.
func GroupNameFor(u *model.User) string {
	return SanitizeGroupName("user_" + u.ID)
}

// SanitizeGroupName constrains a group name to the transport-safe alphabet
// [A-Za-z0-9-_.], replacing every other rune with an underscore, and
// truncates the result to 99 characters.
func SanitizeGroupName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if len(out) > maxGroupNameLen {
		out = out[:maxGroupNameLen]
	}
	return out
}
