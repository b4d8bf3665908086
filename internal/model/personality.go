package model

import (
	"encoding/json"
	"time"
)

// Traits is the free-form trait bag of a persona. Extra keys supplied by the
// user survive a marshal/unmarshal round trip through the Extra map.
type Traits struct {
	Name    string   `json:"name"`
	Age     int      `json:"age"`
	Tone    string   `json:"tone"`
	Hobbies []string `json:"hobbies"`
	Quirks  string   `json:"quirks"`

	Extra map[string]any `json:"extra,omitempty"`
}

// DefaultTraits is the fixed trait bag used by every self-healing
// bootstrap path. All fallback sites must produce this exact bag.
func DefaultTraits() Traits {
	return Traits{
		Name:    "Asistente",
		Age:     25,
		Tone:    "amigable y servicial",
		Hobbies: []string{"ayudar a las personas", "aprender cosas nuevas", "resolver problemas"},
		Quirks:  "Siempre intenta ver el lado positivo de las cosas",
	}
}

// Personality is immutable once created; there is no update path.
type Personality struct {
	ID        string    `gorm:"column:id;primarykey"`
	UserID    uint      `gorm:"column:user_id;not null;index"`
	Traits    string    `gorm:"column:traits;type:jsonb;not null"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

// DecodeTraits unmarshals the persisted trait bag.
func (p *Personality) DecodeTraits() (Traits, error) {
	var t Traits
	err := json.Unmarshal([]byte(p.Traits), &t)
	return t, err
}

// EncodeTraits serializes a trait bag for persistence.
func EncodeTraits(t Traits) (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
