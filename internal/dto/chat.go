package dto

import "time"

type ChatMessageRequest struct {
	Message string `json:"message" binding:"required,max=4000"`
}

type ChatReplyResponse struct {
	Reply string `json:"reply"`
}

type MessageResponse struct {
	ID            uint      `json:"id"`
	PersonalityID string    `json:"personalityId"`
	Sender        string    `json:"sender"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"createdAt"`
}
