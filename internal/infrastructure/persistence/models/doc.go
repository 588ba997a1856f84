// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel and FamilyModel (id, family_id, created_at)
//   - family.go: families and family_members
//   - capsule.go: time_capsules and time_capsule_recipients
//   - campaign.go: the email_campaigns drip ledger
//   - activity.go: memory tables counted by campaigns and digests
package models
