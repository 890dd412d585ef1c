// Package models contains GORM persistence models for the receiving tables.
// Domain entities carry no ORM tags; each model converts to and from its
// domain type with ToDomain / FromDomain.
//
// Files:
//   - base.go: EntityModel, VersionedModel, LedgerModel
//   - receiving.go: vendors, parts, purchase orders and lines, and the
//     receipt ledger (events with receipt, return and unordered detail rows)
package models
