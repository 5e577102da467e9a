package entity

import (
	"strings"
	"time"
)

type User struct {
	ID          string  `json:"id" firestore:"id"`
	FirstName   string  `json:"first_name" firestore:"firstName"`
	LastName    string  `json:"last_name" firestore:"lastName"`
	Username    string  `json:"username" firestore:"username"`
	Email       string  `json:"email,omitempty" firestore:"email"`
	Avatar      string  `json:"avatar" firestore:"avatar"`
	PhoneNumber string  `json:"phone_number,omitempty" firestore:"phoneNumber"`
	Verified    bool    `json:"verified" firestore:"verified"`
	Role        string  `json:"role" firestore:"role"`
	Rating      float64 `json:"rating" firestore:"rating"`
	RatingCount int     `json:"rating_count" firestore:"ratingCount"`

	DateCreated time.Time `json:"date_created" firestore:"dateCreated"`
}

func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Username
}
