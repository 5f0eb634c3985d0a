// Package client contains the device side of the family sync protocol.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) for the
//     family sync server: Register/GetSalt/Login, Ping, and the per-profile
//     session record Get/Put used by the sync service.
//  2. A gRPC implementation (see GRPCClient) that injects the access token
//     and device id through an interceptor, refreshes expired tokens once
//     and retries, and maps gRPC status codes to sentinel errors.
//  3. Local database bootstrap (InitDatabase) that opens SQLite, applies the
//     embedded migrations and returns the repositories.
//
// # Error Handling
//
// NotFound maps to common.ErrorNotFound so a missing record reads as "no
// session yet". ErrUnavailable and ErrUnauthorized wrap the matching
// common sentinels; match them with errors.Is.
package client
