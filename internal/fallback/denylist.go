package fallback

import "strings"

// externalNotificationActions are outbound actions that do not use the
// send_ prefix.
var externalNotificationActions = map[string]struct{}{
	"email":                  {},
	"email_user":             {},
	"sms":                    {},
	"text_message":           {},
	"notify_external":        {},
	"notify_household":       {},
	"push_notification":      {},
	"post_message":           {},
	"post_to_slack":          {},
	"call_webhook":           {},
	"external_notification":  {},
	"schedule_outbound_call": {},
}

// IsDeniedAction reports whether action would contact someone outside the
// system.
func IsDeniedAction(action string) bool {
	a := strings.ToLower(strings.TrimSpace(action))
	if a == "" {
		return false
	}
	if strings.HasPrefix(a, "send_") {
		return true
	}
	_, denied := externalNotificationActions[a]
	return denied
}
