package gateway

// RouterRef identifies one network-access concentrator by the address its
// management agent listens on.
type RouterRef struct {
	Address string `json:"address"`
}

type Credentials struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	ProfileName string `json:"profileName"`
	RateLimit   string `json:"rateLimit,omitempty"`
}

// RemoteAuthProfile is the PPP secret object living on the router,
// referenced by the opaque RemoteID the router assigned to it.
type RemoteAuthProfile struct {
	RemoteID      string `json:"remoteId"`
	Username      string `json:"username"`
	ProfileName   string `json:"profileName"`
	RateLimit     string `json:"rateLimit,omitempty"`
	RouterAddress string `json:"routerAddress"`
}

type UserConfig struct {
	Username    string `json:"username"`
	ProfileName string `json:"profileName"`
	RateLimit   string `json:"rateLimit,omitempty"`
	Disabled    bool   `json:"disabled"`
}

type ProfilePatch struct {
	Username    string  `json:"username"`
	ProfileName *string `json:"profileName,omitempty"`
	RateLimit   *string `json:"rateLimit,omitempty"`
}

// ProfileSnapshot captures everything needed to recreate a PPP secret on
// its router, including the password the router stores in clear.
type ProfileSnapshot struct {
	Router      RouterRef `json:"router"`
	RemoteID    string    `json:"remoteId"`
	Username    string    `json:"username"`
	Password    string    `json:"password"`
	ProfileName string    `json:"profileName"`
	RateLimit   string    `json:"rateLimit,omitempty"`
}
