package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for SkillBridge Chat.
// It includes standard claims required by the JWT specification and the custom claims
// necessary for identifying users within the messaging system.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the identifier of the authenticated user. The chat core treats it as
	// opaque; identity details are resolved against the user store.
	UserID string `json:"user_id"`

	// Role is the account role ("student", "tutor" or "admin"). Carried for REST
	// handlers; the websocket layer authorizes by membership, not by role.
	Role string `json:"role,omitempty"`
}
