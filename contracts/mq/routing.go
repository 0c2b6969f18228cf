package mq

// Routing keys on the tandem.events exchange.
const (
	RoutingGoalCreated         = "goal.created"
	RoutingGoalProgressChanged = "goal.progress_changed"
	RoutingGoalChanged         = "goal.changed"
	RoutingPostChanged         = "community.post_changed"
	RoutingProfileUpserted     = "profile.upserted"
	RoutingProfileDeleted      = "profile.deleted"
)

// Aggregate types recorded on outbox rows.
const (
	AggregateGoal      = "goal"
	AggregateCommunity = "community"
	AggregateProfile   = "profile"
)
