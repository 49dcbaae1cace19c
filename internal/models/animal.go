// Package models defines animal records for the shelter database.
package models

import (
	"errors"
	"time"
)

// AnimalStatus represents where an animal is in the adoption pipeline.
type AnimalStatus string

const (
	AnimalStatusAvailable AnimalStatus = "available"
	AnimalStatusReserved  AnimalStatus = "reserved"
	AnimalStatusAdopted   AnimalStatus = "adopted"
)

// Animal represents a shelter animal available for adoption.
type Animal struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Species   string       `json:"species"` // "dog", "cat", ...
	Size      string       `json:"size"`    // "small", "medium", "large"
	Status    AnimalStatus `json:"status"`
	PhotoURL  string       `json:"photo_url,omitempty"`
	Notes     string       `json:"notes,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Validate checks required animal fields.
func (a *Animal) Validate() error {
	if a.Name == "" {
		return errors.New("animal name is required")
	}
	if a.Species == "" {
		return errors.New("animal species is required")
	}
	switch a.Status {
	case AnimalStatusAvailable, AnimalStatusReserved, AnimalStatusAdopted:
		return nil
	default:
		return errors.New("invalid animal status")
	}
}
