package user

// CreatedEvent is published whenever a user is registered.
type CreatedEvent struct {
	Result User
}

// RoleChangedEvent is published whenever a user's role mutates.
type RoleChangedEvent struct {
	PreviousRole Role
	Result       User
}
