package dto

import "time"

// UserResponse never carries the password hash.
type UserResponse struct {
	ID                  uint      `json:"id"`
	Email               string    `json:"email"`
	Name                string    `json:"name,omitempty"`
	Age                 *int      `json:"age,omitempty"`
	EmailConfirmed      bool      `json:"emailConfirmed"`
	ActivePersonalityID *string   `json:"activePersonalityId,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" binding:"omitempty,min=2,max=50"`
	Age  *int   `json:"age" binding:"omitempty,gte=0,lte=150"`
}
