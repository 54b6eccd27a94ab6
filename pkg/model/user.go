package model

import "github.com/gofrs/uuid/v5"

type User struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
