// Package response renders the API's JSON envelope: data on success, a
// machine-readable error object on failure.
//
//	response.JSON(w, http.StatusOK, subscriptions)
//	response.Error(w, http.StatusConflict, "tier_full", "this tier has no seats left")
//
// Error codes are stable identifiers clients branch on; messages are
// human-readable and may change.
package response
