package domain

// User represents the authenticated platform user
type User struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	SubscriptionPlan string `json:"subscription_plan"`
	APIUsageCount    int    `json:"api_usage_count"`
}

// UserCreate represents user registration data
type UserCreate struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserLogin represents login credentials
type UserLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by login and registration
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
