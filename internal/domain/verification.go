package domain

// UserVerification stores a pending one-time code, keyed by (user_id, type).
// ExpiresAt doubles as the DynamoDB TTL attribute.
type UserVerification struct {
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	Type      string `json:"type" dynamodbav:"type"`
	Code      string `json:"-" dynamodbav:"code"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
}
