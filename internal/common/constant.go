// Package common contains shared constants and sentinel errors used across
// GophFocus components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// DeviceIDHeaderName identifies the calling device on outbound requests.
const DeviceIDHeaderName = "device_id"
