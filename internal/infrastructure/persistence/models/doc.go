// Package models holds the GORM row types for the ledger tables.
//
// Domain types in internal/domain/ledger carry no ORM tags; each model here
// has a ToDomain method and a ...FromDomain constructor, and repositories only
// ever hand domain values across the package boundary. Dates are stored as
// DATE columns and amounts as decimal(18,3). The schema itself is owned by
// the SQL migrations, not by AutoMigrate.
package models
