package auth

type TokenCodec interface {
	IssueAccess(s Subject) (string, error)
	IssueRefresh(s Subject) (string, error)
	Verify(token string) (*Claims, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	VerifyDummy(plaintext string)
}
