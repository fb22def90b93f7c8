package ports

// TokenCodec issues and decodes the signed tokens shared by the access and
// refresh flows.
type TokenCodec interface {
	IssueAccessToken(subject string) (string, error)
	IssueRefreshToken(userID int64) (string, error)
	// DecodeSubject verifies the signature of an access token and returns its
	// subject. Expiry is not checked.
	DecodeSubject(token string) (string, error)
	// DecodeUserID verifies the signature of a refresh token and returns the
	// numeric user id in its subject. Expiry is not checked.
	DecodeUserID(token string) (int64, error)
	// ValidateAccess and ValidateRefresh report nil only for a correctly
	// signed, unexpired token of the matching kind.
	ValidateAccess(token string) error
	ValidateRefresh(token string) error
}

// PasswordHasher is a one-way hash with constant-time verification.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}
