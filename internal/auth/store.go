package auth

// Storage keys mirror the browser client this package replaces. The
// per-phone snapshot keys use userKeyPrefix + phone number.
const (
	keyCurrentUser       = "current_user"
	keyToken             = "jwt_token"
	keyVerificationCode  = "verification_code"
	keyVerificationPhone = "verification_phone"
	userKeyPrefix        = "user_"
)

// Store is the persisted-session port: a small durable key/value space
// holding the current user record, bearer token and per-phone user
// snapshots. Implementations must be safe for concurrent use.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string)
	// Clear removes every key. Logout relies on this to drop the session
	// user, token, verification scratch data and phone snapshots together.
	Clear()
}

type tokenSource struct {
	store Store
}

func (t tokenSource) Token() string {
	value, _ := t.store.Get(keyToken)
	return value
}

// TokenSource adapts a Store into the api.Client token hook. The token is
// read from persisted storage on every request so a logout immediately
// stops the header being sent.
func TokenSource(store Store) tokenSource {
	return tokenSource{store: store}
}
