package models

// Group represents a trip and the people sharing its costs.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Lisbon 2026").
	Name string

	// Destination is where the trip goes.
	Destination string

	// StartDate and EndDate bound the trip (Unix timestamps, 0 if unset).
	StartDate int64
	EndDate   int64

	// Members is the roster of member emails, in the order they joined.
	Members []string

	// CreatedBy is the email of the member who created the group.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether id is on the group's roster.
func (g *Group) HasMember(id string) bool {
	for _, m := range g.Members {
		if m == id {
			return true
		}
	}
	return false
}
