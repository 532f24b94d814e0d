package github

import (
	"strconv"

	"github.com/hirewire/hirewire/social"
)

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
	Company   string `json:"company"`
	Blog      string `json:"blog"`
	Location  string `json:"location"`
	Bio       string `json:"bio"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// mapProfile normalizes the GitHub user into the provider-neutral
// profile. The email comes from the emails endpoint, not the user.
func mapProfile(user *githubUser, email string, emailVerified bool) *social.SocialProfile {
	if user == nil {
		return nil
	}

	return &social.SocialProfile{
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Provider:       "github",
		Email:          email,
		EmailVerified:  emailVerified,
		Name:           user.Name,
		Username:       user.Login,
		AvatarURL:      user.AvatarURL,
		ProfileURL:     user.HTMLURL,
		Raw: map[string]any{
			"id":         user.ID,
			"login":      user.Login,
			"name":       user.Name,
			"email":      email,
			"avatar_url": user.AvatarURL,
			"html_url":   user.HTMLURL,
			"company":    user.Company,
			"blog":       user.Blog,
			"location":   user.Location,
			"bio":        user.Bio,
		},
	}
}
