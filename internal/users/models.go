package users

import "time"

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio"`
	Batch     string    `json:"batch"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName is the full name when set, else the username.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Avatar returns the stored avatar or a generated one.
func (u User) Avatar() string {
	if u.AvatarURL != "" {
		return u.AvatarURL
	}
	return AvatarURL(u.DisplayName())
}

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Batch    string `json:"batch"`
}

type ProfileUpdate struct {
	FullName  *string `json:"full_name"`
	Email     *string `json:"email"`
	Bio       *string `json:"bio"`
	Batch     *string `json:"batch"`
	AvatarURL *string `json:"avatar_url"`
}
