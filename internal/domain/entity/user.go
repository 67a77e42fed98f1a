package entity

import "time"

// User is managed by the external account system; the chat core only reads it
// to hydrate participant display data.
type User struct {
	ID        string    `json:"id" firestore:"id"`
	Username  string    `json:"username" firestore:"username"`
	Email     string    `json:"email" firestore:"email"`
	Role      string    `json:"role" firestore:"role"` // "buyer" or "seller"
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}
