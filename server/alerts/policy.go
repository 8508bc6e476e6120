package alerts

import "github.com/Daskott/rightguard/server/models"

// SuccessPolicy decides whether a contact counts as successfully alerted
type SuccessPolicy func(result models.ContactAlertResult) bool

// LenientPolicy counts every contact whose message was generated, even if all
// of its channels failed.
func LenientPolicy(result models.ContactAlertResult) bool {
	return result.Error == ""
}

// StrictPolicy requires at least one channel to have delivered the alert
func StrictPolicy(result models.ContactAlertResult) bool {
	return result.Error == "" && result.SucceededChannels() > 0
}

// PolicyByName maps the config value onto a policy, defaulting to lenient
func PolicyByName(name string) SuccessPolicy {
	if name == "strict" {
		return StrictPolicy
	}
	return LenientPolicy
}
