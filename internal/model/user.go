package model

import (
	"github.com/google/uuid"
)

type ActorType string

const (
	ActorTypePatient  ActorType = "PATIENT"
	ActorTypeProvider ActorType = "PROVIDER"
)

type ProviderRole string

const (
	ProviderRoleAdmin        ProviderRole = "ADMIN"
	ProviderRoleReceptionist ProviderRole = "RECEPTIONIST"
	ProviderRoleDoctor       ProviderRole = "DOCTOR"
	ProviderRoleNurse        ProviderRole = "NURSE"
)

func (r ProviderRole) Valid() bool {
	switch r {
	case ProviderRoleAdmin, ProviderRoleReceptionist, ProviderRoleDoctor, ProviderRoleNurse:
		return true
	}
	return false
}

// Actor is the authenticated caller on whose behalf an operation runs.
type Actor struct {
	ID   uuid.UUID    `json:"id"`
	Type ActorType    `json:"type"`
	Role ProviderRole `json:"role,omitempty"`
}

func (a Actor) IsPatient() bool {
	return a.Type == ActorTypePatient
}

func (a Actor) IsProvider() bool {
	return a.Type == ActorTypeProvider
}

// IsPrivileged reports whether the actor is front-desk or admin staff.
func (a Actor) IsPrivileged() bool {
	return a.HasRole(ProviderRoleAdmin, ProviderRoleReceptionist)
}

func (a Actor) HasRole(roles ...ProviderRole) bool {
	if !a.IsProvider() {
		return false
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

type Patient struct {
	Base
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
}

func (p *Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type Provider struct {
	Base
	FirstName string       `db:"first_name" json:"first_name"`
	LastName  string       `db:"last_name" json:"last_name"`
	Email     string       `db:"email" json:"email"`
	Role      ProviderRole `db:"role" json:"role"`
}
