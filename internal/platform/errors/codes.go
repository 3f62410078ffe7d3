// Package errors provides structured error handling for pixelfield services.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Canvas write-path errors
	CodeCoordinateOutOfRange Code = "COORDINATE_OUT_OF_RANGE"
	CodeInvalidValue         Code = "INVALID_VALUE"
	CodeCooldownActive       Code = "COOLDOWN_ACTIVE"

	// Snapshot errors
	CodeDuplicateSnapshot     Code = "DUPLICATE_SNAPSHOT"
	CodeSnapshotNotFound      Code = "SNAPSHOT_NOT_FOUND"
	CodeInvalidImageReference Code = "INVALID_IMAGE_REFERENCE"
	CodeInvalidPayloadLength  Code = "INVALID_PAYLOAD_LENGTH"

	// Collectible/mint errors
	CodeInsufficientPayment Code = "INSUFFICIENT_PAYMENT"
	CodeNotCreator          Code = "NOT_CREATOR"
	CodeWithdrawFailed      Code = "WITHDRAW_FAILED"
	CodeCollectibleNotFound Code = "COLLECTIBLE_NOT_FOUND"

	// Authorization errors
	CodeNotAuthorized Code = "NOT_AUTHORIZED"
	CodeActorMissing  Code = "ACTOR_MISSING"
	CodeGrantInvalid  Code = "GRANT_INVALID"
	CodeGrantExpired  Code = "GRANT_EXPIRED"

	// Configuration errors
	CodeCanvasInvalidDimensions Code = "CANVAS_INVALID_DIMENSIONS"
	CodeCanvasInvalidPalette    Code = "CANVAS_INVALID_PALETTE"
	CodeCanvasAdminMissing      Code = "CANVAS_ADMIN_MISSING"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Generic errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeInternal        Code = "INTERNAL"
	CodeUnavailable     Code = "UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeCoordinateOutOfRange,
		CodeInvalidValue,
		CodeInvalidImageReference,
		CodeInvalidPayloadLength,
		CodeCanvasInvalidDimensions,
		CodeCanvasInvalidPalette,
		CodeCanvasAdminMissing,
		CodeInvalidArgument:
		return http.StatusBadRequest

	// Unauthorized - caller identity missing or unverifiable
	case CodeActorMissing,
		CodeGrantInvalid,
		CodeGrantExpired:
		return http.StatusUnauthorized

	// Payment required - mint payment below price
	case CodeInsufficientPayment:
		return http.StatusPaymentRequired

	// Forbidden - identity known, operation not allowed
	case CodeNotAuthorized,
		CodeNotCreator:
		return http.StatusForbidden

	// Not found - resource doesn't exist
	case CodeNotFound,
		CodeSnapshotNotFound,
		CodeCollectibleNotFound:
		return http.StatusNotFound

	// Conflict - unique resource constraint
	case CodeDuplicateSnapshot:
		return http.StatusConflict

	// Too many requests - actor still cooling down
	case CodeCooldownActive:
		return http.StatusTooManyRequests

	// Bad gateway - payout sink rejected the transfer
	case CodeWithdrawFailed:
		return http.StatusBadGateway

	case CodeUnavailable:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
