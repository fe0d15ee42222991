package ratelimit

import "fmt"

// HumanResetMessage phrases the time until the counter resets in plain,
// non-technical language. The text deliberately avoids the words "rate",
// "limit", and "quota".
func HumanResetMessage(resetInSeconds int) string {
	hours := (resetInSeconds + 3599) / 3600
	if hours < 1 {
		hours = 1
	}
	if hours == 1 {
		return "I need a bit of rest—text me again in about an hour."
	}
	return fmt.Sprintf("I need to rest a little—text me again in about %d hours.", hours)
}
