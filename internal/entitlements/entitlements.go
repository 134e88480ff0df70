// Package entitlements defines the static per-user-type daily message
// ceilings consulted before any chat mutation.
package entitlements

import "marketingvoice/internal/models"

var maxMessagesPerDay = map[models.UserType]int{
	models.UserTypeGuest:   20,
	models.UserTypeRegular: 100,
}

// CeilingFor returns the daily message ceiling for the user type. Unknown
// types fall back to the guest ceiling.
func CeilingFor(userType models.UserType) int {
	if ceiling, ok := maxMessagesPerDay[userType]; ok {
		return ceiling
	}
	return maxMessagesPerDay[models.UserTypeGuest]
}

// Allowed reports whether a user with the given trailing-24h message count
// may send another message.
func Allowed(userType models.UserType, recentCount int) bool {
	return recentCount < CeilingFor(userType)
}
