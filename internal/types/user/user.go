package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	ClerkID            string    `json:"clerk_id" db:"clerk_id"`
	Email              string    `json:"email" db:"email"`
	Username           string    `json:"username" db:"username"`
	FirstName          string    `json:"first_name" db:"first_name"`
	LastName           string    `json:"last_name" db:"last_name"`
	ImageURL           string    `json:"image_url" db:"image_url"`
	Age                *int      `json:"age,omitempty" db:"age"`
	Gender             *string   `json:"gender,omitempty" db:"gender"`
	Occupation         *string   `json:"occupation,omitempty" db:"occupation"`
	InterestedSubjects []string  `json:"interested_subjects" db:"interested_subjects"`
	BalanceSeconds     int64     `json:"balance_seconds" db:"balance_seconds"`
	EmailVerified      bool      `json:"email_verified" db:"email_verified"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

type CreateUserRequest struct {
	ClerkID   string `json:"clerk_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
}

type UpdateProfileRequest struct {
	Username           string   `json:"username"`
	FirstName          string   `json:"first_name"`
	LastName           string   `json:"last_name"`
	ImageURL           string   `json:"image_url"`
	Age                *int     `json:"age"`
	Gender             *string  `json:"gender"`
	Occupation         *string  `json:"occupation"`
	InterestedSubjects []string `json:"interested_subjects"`
}
