package model

// UserProfile is the read-only slice of the users table the chat needs.
// The table itself is owned by the auth subsystem and is never migrated here.
type UserProfile struct {
	Id       string `gorm:"column:id;primaryKey"`
	Username string `gorm:"column:username"`
}

func (UserProfile) TableName() string {
	return "users"
}
