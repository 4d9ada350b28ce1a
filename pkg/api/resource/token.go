package resource

// TokenResource is the login and register response body.
type TokenResource struct {
	Token string        `json:"token"`
	User  *UserResource `json:"user"`
}

func NewToken(token string, user *UserResource) *TokenResource {
	return &TokenResource{
		Token: token,
		User:  user,
	}
}

// StatsResource is the live engine snapshot served by the stats endpoint.
type StatsResource struct {
	OnlineUsers int `json:"onlineUsers"`
	ActiveCalls int `json:"activeCalls"`
}
