package entity

// Identity is the authenticated user behind a connection. It is issued by the
// auth subsystem and only consumed here.
type Identity struct {
	UserId      string
	Username    string
	DisplayName string
}

// Name returns the label shown to other users.
func (i Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if i.Username != "" {
		return i.Username
	}
	return i.UserId
}
