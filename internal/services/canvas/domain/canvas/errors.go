package canvas

import apperrors "github.com/louisbranch/pixelfield/internal/platform/errors"

var (
	// ErrCoordinateOutOfRange indicates a coordinate outside the grid.
	ErrCoordinateOutOfRange = apperrors.New(apperrors.CodeCoordinateOutOfRange, "coordinate is outside the canvas")
	// ErrInvalidValue indicates a value outside the palette.
	ErrInvalidValue = apperrors.New(apperrors.CodeInvalidValue, "value is outside the palette")
	// ErrCooldownActive indicates an actor writing before their cooldown expired.
	ErrCooldownActive = apperrors.New(apperrors.CodeCooldownActive, "actor is cooling down")
	// ErrDuplicateSnapshot indicates canvas content that is already snapshotted.
	ErrDuplicateSnapshot = apperrors.New(apperrors.CodeDuplicateSnapshot, "canvas content is already snapshotted")
	// ErrSnapshotNotFound indicates a missing snapshot.
	ErrSnapshotNotFound = apperrors.New(apperrors.CodeSnapshotNotFound, "snapshot does not exist")
	// ErrInvalidImageReference indicates a missing image reference.
	ErrInvalidImageReference = apperrors.New(apperrors.CodeInvalidImageReference, "image reference is required")
	// ErrInvalidPayloadLength indicates a composed payload of the wrong size.
	ErrInvalidPayloadLength = apperrors.New(apperrors.CodeInvalidPayloadLength, "payload length must equal the canvas cell count")
	// ErrInsufficientPayment indicates a mint payment below the price.
	ErrInsufficientPayment = apperrors.New(apperrors.CodeInsufficientPayment, "payment is below the mint price")
	// ErrNotCreator indicates a mint attempt by someone other than the snapshot creator.
	ErrNotCreator = apperrors.New(apperrors.CodeNotCreator, "only the snapshot creator may mint it")
	// ErrWithdrawFailed indicates a rejected payout transfer.
	ErrWithdrawFailed = apperrors.New(apperrors.CodeWithdrawFailed, "payout transfer was rejected")
	// ErrCollectibleNotFound indicates a missing collectible.
	ErrCollectibleNotFound = apperrors.New(apperrors.CodeCollectibleNotFound, "collectible does not exist")
	// ErrNotAuthorized indicates an administrator operation requested by a non-administrator.
	ErrNotAuthorized = apperrors.New(apperrors.CodeNotAuthorized, "requestor is not the administrator")
	// ErrActorMissing indicates a missing actor identifier.
	ErrActorMissing = apperrors.New(apperrors.CodeActorMissing, "actor identifier is required")
	// ErrAdminMissing indicates a canvas configured without an administrator.
	ErrAdminMissing = apperrors.New(apperrors.CodeCanvasAdminMissing, "administrator account is required")
)
