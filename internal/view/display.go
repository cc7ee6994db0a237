package view

import (
	"strconv"

	"shotzi/internal/model"
)

// displayIDLength is how many characters of the owner ID survive in the
// last-resort display fallback.
const displayIDLength = 8

// DisplayName resolves what to show for a content owner, in fallback order:
// the profile username, then the email local part, then the owner ID
// truncated to a few characters. Every surface that renders an author name
// goes through this so anonymous-looking rows degrade the same way
// everywhere.
func DisplayName(username, email string, ownerID int64) string {
	if username != "" {
		return username
	}
	if local := model.EmailLocalPart(email); local != "" {
		return local
	}
	id := strconv.FormatInt(ownerID, 10)
	if len(id) > displayIDLength {
		id = id[:displayIDLength]
	}
	return id
}
