package models

import "time"

const (
	FreeSubscription    = "free"
	PremiumSubscription = "premium"
)

var DefaultLanguages = []string{"en"}

type User struct {
	UserID             string    `json:"user_id" gorm:"primarykey"`
	SubscriptionStatus string    `json:"subscription_status" gorm:"default:free" validate:"oneof=free premium"`
	PreferredLanguages []string  `json:"preferred_languages" gorm:"serializer:json;type:text"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewUser returns a user with the default subscription & languages
func NewUser(userID string) User {
	return User{
		UserID:             userID,
		SubscriptionStatus: FreeSubscription,
		PreferredLanguages: append([]string{}, DefaultLanguages...),
	}
}
