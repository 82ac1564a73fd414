// Package geolocation resolves a client IP address to an approximate place.
package geolocation

import "context"

// Location is the best-effort position of an IP address. Fields the upstream
// did not return are left nil or empty.
type Location struct {
	Lat     *float64
	Lon     *float64
	City    string
	State   string
	Country string
}

// Locator resolves IP addresses. Implementations never fail the caller: a
// lookup that cannot be completed returns nil.
type Locator interface {
	Locate(ctx context.Context, ip string) *Location
}
