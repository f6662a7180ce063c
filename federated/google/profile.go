package google

import "github.com/goliatone/go-identity/federated"

// userInfo is the OpenID Connect userinfo document Google answers with.
type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

func (i userInfo) profile() *federated.Profile {
	return &federated.Profile{
		ProviderUserID: i.Sub,
		Provider:       "google",
		Email:          i.Email,
		EmailVerified:  i.EmailVerified,
		Name:           i.Name,
		FirstName:      i.GivenName,
		LastName:       i.FamilyName,
		AvatarURL:      i.Picture,
		Raw: map[string]any{
			"sub":            i.Sub,
			"email":          i.Email,
			"email_verified": i.EmailVerified,
			"name":           i.Name,
			"given_name":     i.GivenName,
			"family_name":    i.FamilyName,
			"picture":        i.Picture,
			"locale":         i.Locale,
		},
	}
}
