// Package safety screens inbound messages with lightweight pattern checks
// before any quota is consumed or work is done.
package safety

import "regexp"

// Category labels why a message was blocked.
type Category string

const (
	CategoryJailbreak Category = "jailbreak"
	CategoryNSFW      Category = "nsfw"
	CategorySelfHarm  Category = "self_harm"
	CategoryViolence  Category = "violence"
	CategoryHate      Category = "hate"
)

var (
	reJailbreak = regexp.MustCompile(`(?i)(ignore (all|any|previous) (instructions|rules)|system prompt|developer message|jailbreak|do anything now)`)
	reNSFW      = regexp.MustCompile(`(?i)\b(sex|porn|nude|naked|blowjob|anal|escort)\b`)
	reSelfHarm  = regexp.MustCompile(`(?i)\b(suicide|kill myself|self harm|cut myself)\b`)
	reViolence  = regexp.MustCompile(`(?i)\b(how to make a bomb|build a bomb|poison|kill them)\b`)
	reHate      = regexp.MustCompile(`(?i)\b(genocide|gas the|racial slur)\b`)
)

// Result is the outcome of a safety screen.
type Result struct {
	Allowed  bool
	Category Category
	Reason   string
}

// Detect screens text against the blocklist patterns. Check order matters:
// self-harm outranks the broader categories so its tailored refusal wins.
func Detect(text string) Result {
	switch {
	case reJailbreak.MatchString(text):
		return Result{Allowed: false, Category: CategoryJailbreak, Reason: "prompt_injection"}
	case reSelfHarm.MatchString(text):
		return Result{Allowed: false, Category: CategorySelfHarm, Reason: "self_harm"}
	case reViolence.MatchString(text):
		return Result{Allowed: false, Category: CategoryViolence, Reason: "violence"}
	case reNSFW.MatchString(text):
		return Result{Allowed: false, Category: CategoryNSFW, Reason: "nsfw"}
	case reHate.MatchString(text):
		return Result{Allowed: false, Category: CategoryHate, Reason: "hate"}
	}
	return Result{Allowed: true}
}

// RefusalMessage picks a refusal phrased for the user's tone preference.
func RefusalMessage(tone string, category Category) string {
	switch tone {
	case "playful":
		return "I can't help with that—but I *can* help with something safer if you want."
	case "direct":
		return "I can't help with that. If you want, tell me what safe goal you're trying to achieve instead."
	}
	// default warm
	if category == CategorySelfHarm {
		return "I'm really sorry you're feeling this way. I can't help with self-harm, but I can stay with you and help you find support."
	}
	return "I can't help with that, but I can help with something safer if you'd like."
}
