// Package client talks to the fieldsync document store over gRPC.
//
// GRPCClient implements syncer.Remote plus the SignIn and Ping calls used by
// the identity provider and the connectivity monitor. An interceptor attaches
// the access token to every call and, when the server reports the token as
// expired, signs in again under the cached principal and retries once.
//
// gRPC status codes are mapped to ErrUnavailable and ErrUnauthorized so
// callers can match them with errors.Is.
package client
