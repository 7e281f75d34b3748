package ports

type NonceVerifier interface {
	Verify(token string, action string, userID int64) bool
}
