package model

import "github.com/gofrs/uuid/v5"

// Team is the roster a user submitted.
// Drivers hold driver abbreviations (VER, HAM, ...), Constructors hold
// constructor names as reported by the standings provider.
type Team struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"userId"`
	Drivers      []string  `json:"drivers"`
	Constructors []string  `json:"constructors"`
	TotalCost    float64   `json:"totalCost"`
}

// TeamEntry is a team together with the name of its owner
type TeamEntry struct {
	Team
	UserName string `json:"userName"`
}

// RankedTeam is a leaderboard line. It only exists as response payload.
type RankedTeam struct {
	TeamEntry
	TotalPoints float64 `json:"totalPoints"`
}
