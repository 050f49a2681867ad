package room

import "strings"

// Separator joins the two participant ids of a room.
const Separator = "_"

// ID derives the room identifier for a pair of users. Both ids are sorted as
// strings before being joined, the same way the browser client computes it,
// so either participant gets the same value without negotiation.
func ID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + Separator + b
}

// ValidUserID reports whether id can take part in a room. An id containing
// the separator would make room ids ambiguous: "a_b"+"c" and "a"+"b_c" both
// give "a_b_c".
func ValidUserID(id string) bool {
	return id != "" && !strings.Contains(id, Separator)
}

// Participants reports whether userID is one of the two participants of
// roomID and returns the other one.
func Participants(roomID, userID string) (string, bool) {
	if !ValidUserID(userID) {
		return "", false
	}

	first, second, found := strings.Cut(roomID, Separator)
	if !found || !ValidUserID(first) || !ValidUserID(second) || ID(first, second) != roomID {
		return "", false
	}

	switch userID {
	case first:
		return second, true
	case second:
		return first, true
	default:
		return "", false
	}
}
