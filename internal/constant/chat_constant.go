package constant

const (
	ChatMessageRoleUser  = "user"
	ChatMessageRoleModel = "model"

	DefaultSessionTitle = "New conversation"
)
