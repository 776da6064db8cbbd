package constant

// ticket status
const (
	TicketAvailable = "available" // on sale
	TicketSold      = "sold"      // purchased, one-way
)

// account roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// purchase.is_redeemed
const (
	NotRedeemed = 0
	Redeemed    = 1
)

// outbox.status
const (
	OutboxPending = 1
	OutboxSent    = 2
	OutboxFailed  = 3
)
