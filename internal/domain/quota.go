package domain

// QuotaAccount is a user's credit balance. One credit is spent per
// successful conversion and UsedCredits never exceeds MaxCredits.
type QuotaAccount struct {
	UserID      string `json:"user_id"`
	MaxCredits  int    `json:"max_credits"`
	UsedCredits int    `json:"used_credits"`
}

// Remaining returns the credits still available, never below zero.
func (a *QuotaAccount) Remaining() int {
	if a == nil || a.UsedCredits >= a.MaxCredits {
		return 0
	}
	return a.MaxCredits - a.UsedCredits
}

// Exhausted reports whether no credits are left.
func (a *QuotaAccount) Exhausted() bool {
	return a.Remaining() == 0
}
