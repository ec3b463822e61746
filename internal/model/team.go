package model

import "time"

type Team struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DefaultVenue *string   `json:"defaultVenue"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TeamPatch renames a team or changes the venue new minutes start with.
// A null defaultVenue clears it.
type TeamPatch struct {
	Name         *string          `json:"name,omitempty"`
	DefaultVenue Optional[string] `json:"defaultVenue,omitzero"`
}

func (p TeamPatch) Empty() bool {
	return p.Name == nil && !p.DefaultVenue.Set
}

type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"displayName"`
	PhotoURL    *string   `json:"photoUrl"`
	IsAdmin     bool      `json:"isAdmin"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Name returns the display name, falling back to the email address.
func (u User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Email
}

// TeamMember is a (team, user) membership. Tasks are assigned to memberships,
// not users, so the same user can hold different roles per team.
type TeamMember struct {
	ID            string    `json:"id"`
	TeamID        string    `json:"teamId"`
	UserID        string    `json:"userId"`
	IsCoordinator bool      `json:"isCoordinator"`
	CreatedAt     time.Time `json:"createdAt"`
}

type MemberWithUser struct {
	TeamMember
	User User `json:"user"`
}

type TeamDetails struct {
	Team
	Members []MemberWithUser `json:"members"`
}
