package dto

import (
	"time"

	"github.com/RoberAF/chatbot/internal/model"
)

type CreatePersonalityRequest struct {
	Traits TraitsPayload `json:"traits" binding:"required"`
}

// TraitsPayload mirrors model.Traits at the boundary. Beyond shape, trait
// content is accepted verbatim.
type TraitsPayload struct {
	Name    string         `json:"name" binding:"required,max=100"`
	Age     int            `json:"age" binding:"omitempty,gte=0,lte=200"`
	Tone    string         `json:"tone" binding:"omitempty,max=200"`
	Hobbies []string       `json:"hobbies" binding:"omitempty,dive,max=100"`
	Quirks  string         `json:"quirks" binding:"omitempty,max=500"`
	Extra   map[string]any `json:"extra" binding:"omitempty"`
}

func (p TraitsPayload) ToModel() model.Traits {
	return model.Traits{
		Name:    p.Name,
		Age:     p.Age,
		Tone:    p.Tone,
		Hobbies: p.Hobbies,
		Quirks:  p.Quirks,
		Extra:   p.Extra,
	}
}

type PersonalityResponse struct {
	ID        string       `json:"id"`
	UserID    uint         `json:"userId"`
	Traits    model.Traits `json:"traits"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"createdAt"`
}

type SelectPersonalityResponse struct {
	Success bool `json:"success"`
}
