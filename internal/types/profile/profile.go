package profile

import "strings"

type UserProfile struct {
	Name   string `json:"name" db:"name"`
	Age    string `json:"age" db:"age"`
	Height string `json:"height" db:"height"`
	Weight string `json:"weight" db:"weight"`
}

// IsComplete only checks that every field has some content.
func (p UserProfile) IsComplete() bool {
	return strings.TrimSpace(p.Name) != "" &&
		strings.TrimSpace(p.Age) != "" &&
		strings.TrimSpace(p.Height) != "" &&
		strings.TrimSpace(p.Weight) != ""
}

type ProfileResponse struct {
	Profile  UserProfile `json:"profile"`
	Complete bool        `json:"complete"`
}
