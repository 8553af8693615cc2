package entity

import "time"

// BlockedDomain marks a host as permanently hostile for the remainder of
// the process lifetime. Blocked hosts are filtered out of both read and
// work queries and are never fetched again, even if an Article referencing
// them is already stored.
type BlockedDomain struct {
	ID        int64
	Domain    string
	Reason    string
	CreatedAt time.Time
}
