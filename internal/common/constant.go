// Package common contains shared constants and error values used by both
// the FieldSync client and server.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"
