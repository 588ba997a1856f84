package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
}

// BaseEntity provides common fields for all entities
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt returns the creation timestamp
func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// NewBaseEntity creates a new base entity with generated ID
func NewBaseEntity() BaseEntity {
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
	}
}

// FamilyEntity is an entity owned by exactly one family (the tenant).
type FamilyEntity struct {
	BaseEntity
	FamilyID uuid.UUID
	events   []DomainEvent
}

// NewFamilyEntity creates a new family-scoped entity
func NewFamilyEntity(familyID uuid.UUID) FamilyEntity {
	return FamilyEntity{
		BaseEntity: NewBaseEntity(),
		FamilyID:   familyID,
	}
}

// AddDomainEvent records an event to be published after persistence
func (e *FamilyEntity) AddDomainEvent(event DomainEvent) {
	e.events = append(e.events, event)
}

// GetDomainEvents returns all pending domain events
func (e *FamilyEntity) GetDomainEvents() []DomainEvent {
	return e.events
}

// ClearDomainEvents clears the pending domain events
func (e *FamilyEntity) ClearDomainEvents() {
	e.events = nil
}
