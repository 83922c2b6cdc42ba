package model

import "time"

// Vehicle is a registered vehicle owned by a user.  The category drives
// the hourly rate lookup when a session's fee is computed.
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – user who registered the vehicle.
//  Plate     – licence plate, unique.
//  Category  – vehicle category (e.g. CAR, MOTORBIKE, TRUCK).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Vehicle struct {
	ID        uint64    `json:"id"`
	OwnerID   uint64    `json:"owner_id"`
	Plate     string    `json:"plate"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HourlyRate prices one vehicle category.  Categories without a row have
// no configured rate; the fee projection surfaces that as an error while
// session completion falls back to a zero fee.
//
// Fields:
//  ID            – primary key identifier.
//  Category      – vehicle category the rate applies to, unique.
//  RateCentsHour – price in cents per started hour.
//  UpdatedAt     – last update timestamp.
type HourlyRate struct {
	ID            uint64    `json:"id"`
	Category      string    `json:"category"`
	RateCentsHour uint32    `json:"rate_cents_hour"`
	UpdatedAt     time.Time `json:"updated_at"`
}
