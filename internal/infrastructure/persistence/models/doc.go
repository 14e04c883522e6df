// Package models holds the GORM rows behind the domain aggregates. Domain
// types carry no ORM tags; every model converts with ToDomain/FromDomain.
// Timestamps are stored in UTC.
package models
