package users

import "time"

const DefaultSubscriptionTier = "free"

// User is an account. PasswordHash never leaves the service layer.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	SubscriptionTier string     `json:"subscriptionTier"`
	ResumesCreated   int        `json:"resumesCreated"`
	AnalysesRun      int        `json:"analysesRun"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	DeletedAt        *time.Time `json:"-"`
}

// Profile is the public view of a user returned by the API.
type Profile struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	SubscriptionTier string     `json:"subscriptionTier"`
	CreatedAt        time.Time  `json:"createdAt"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		SubscriptionTier: u.SubscriptionTier,
		CreatedAt:        u.CreatedAt,
		LastLoginAt:      u.LastLoginAt,
	}
}
