/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Room and Content Business Logic Errors
const (
	// ErrRoomNotFound indicates that the referenced community or private chat room does not exist.
	ErrRoomNotFound = 2101

	// ErrNotMember indicates that the user is not a member of the community they tried to access.
	ErrNotMember = 2102

	// ErrNotParticipant indicates that the user is neither of the two fixed participants of a private room.
	ErrNotParticipant = 2103

	// ErrCommunityFull indicates that the community has reached its configured member limit.
	ErrCommunityFull = 2104

	// ErrAlreadyMember indicates that the user already holds a membership in the community.
	ErrAlreadyMember = 2105

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201
)

// 3xxx: User and Session Errors
const (
	// ErrUnauthorized indicates a missing, malformed, or expired access token.
	ErrUnauthorized = 3001

	// ErrUserNotFound indicates that the referenced user account does not exist.
	ErrUserNotFound = 3002
)

// 4xxx: External Dependency Errors
const (
	// ErrDependencyUnavailable indicates that the presence store or persistence store
	// could not be reached while handling the request.
	ErrDependencyUnavailable = 4001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
