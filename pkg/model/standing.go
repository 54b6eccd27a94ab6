package model

type DriverStanding struct {
	Abbr   string  `json:"abbr"`
	Points float64 `json:"points"`
}

type ConstructorStanding struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
}
