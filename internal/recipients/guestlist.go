package recipients

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ignite/recipient-engine/internal/email"
	"github.com/ignite/recipient-engine/internal/phone"
)

// recipientCache keeps canonical forms of recently seen recipients. An
// upload checks the same guestlist entries against every row, so even a
// small cache removes nearly all repeat validation work.
var recipientCache = struct {
	sync.Mutex
	formatted map[string]string
	order     []string
}{formatted: make(map[string]string)}

const recipientCacheSize = 32

// FormatRecipient reduces a recipient to the form used for guestlist
// comparison: phone numbers to their validated digits, email addresses to
// their validated lowercase form, service IDs to canonical UUID form.
// Anything else is compared verbatim, and non-strings never match.
func FormatRecipient(recipient interface{}) string {
	s, ok := recipient.(string)
	if !ok {
		return ""
	}

	recipientCache.Lock()
	defer recipientCache.Unlock()

	if cached, ok := recipientCache.formatted[s]; ok {
		return cached
	}

	formatted := formatRecipient(s)

	if len(recipientCache.order) >= recipientCacheSize {
		oldest := recipientCache.order[0]
		recipientCache.order = recipientCache.order[1:]
		delete(recipientCache.formatted, oldest)
	}
	recipientCache.order = append(recipientCache.order, s)
	recipientCache.formatted[s] = formatted

	return formatted
}

func formatRecipient(recipient string) string {
	if formatted, err := phone.Validate(recipient, true); err == nil {
		return formatted
	}
	if formatted, err := email.Validate(recipient); err == nil {
		return formatted
	}
	if id, err := uuid.Parse(recipient); err == nil {
		return id.String()
	}
	return recipient
}

// AllowedToSendTo reports whether recipient canonicalises to the same form
// as any guestlist entry.
func AllowedToSendTo(recipient interface{}, guestlist []string) bool {
	formatted := FormatRecipient(recipient)
	for _, entry := range guestlist {
		if FormatRecipient(entry) == formatted {
			return true
		}
	}
	return false
}
