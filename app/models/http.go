package models

// GenerateRequest carries the chase-email form. Tone, delay and follow-up
// count are small closed enumerations on the client; the server treats
// them as free text inside the prompt.
type GenerateRequest struct {
	ServiceType       string `json:"serviceType" binding:"required"`
	RelanceType       string `json:"relanceType" binding:"required"`
	DelayTime         string `json:"delayTime" binding:"required"`
	PreviousFollowups string `json:"previousFollowups" binding:"required"`
	Tone              string `json:"tone" binding:"required"`
	ClientName        string `json:"clientName"`
	Detail            string `json:"detail"`
}

type GenerateResponse struct {
	Success bool `json:"success"`
	// EmailsText is the raw templated three-draft text; clients split it
	// into subject/body pairs themselves.
	EmailsText string `json:"emailsText"`
	// RemainingUses is -1 for unlimited (premium) accounts.
	RemainingUses int `json:"remainingUses"`
}

// UserView is the identity summary returned by the verification endpoints.
type UserView struct {
	Email         string `json:"email"`
	RemainingUses *int   `json:"remaining_uses"`
	IsPremium     bool   `json:"is_premium"`
}

// ViewOf converts a record into its client-facing summary.
func ViewOf(u User) UserView {
	v := UserView{Email: u.Email, IsPremium: u.IsPremium}
	if u.RemainingUses.Valid {
		n := int(u.RemainingUses.Int64)
		v.RemainingUses = &n
	}
	return v
}
