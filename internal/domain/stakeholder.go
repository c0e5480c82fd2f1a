package domain

// StakeholderGroup is one audience for targeted alert broadcasts, with its
// single contact pair and the actions prepended to alerts sent to it.
// Immutable reference data from the catalog.
type StakeholderGroup struct {
	Name    string   `json:"name" yaml:"name"`
	Phone   string   `json:"phone" yaml:"phone"`
	Email   string   `json:"email" yaml:"email"`
	Actions []string `json:"actions" yaml:"actions"`
}

// ContactList holds the general emergency recipients for the SMS and email
// channels.
type ContactList struct {
	SMS   []string `json:"sms" yaml:"sms"`
	Email []string `json:"email" yaml:"email"`
}
