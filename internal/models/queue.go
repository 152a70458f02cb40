package models

import "time"

// WaitingEntry is a user waiting in the pairwise queue.
type WaitingEntry struct {
	UserID   string    `json:"user_id"`
	Nickname string    `json:"nickname"`
	Gender   string    `json:"gender"`
	JoinedAt time.Time `json:"joined_at"`
}

// GroupWaitingEntry is a user waiting in one of the gender-keyed group queues.
type GroupWaitingEntry struct {
	UserID   string    `json:"user_id"`
	Nickname string    `json:"nickname"`
	Gender   string    `json:"gender"`
	JoinTime time.Time `json:"join_time"`
}

// GroupQueues is the persisted state of the group matchmaker.
// Groups lists the ids of every group formed so far, in formation order.
type GroupQueues struct {
	Male   []GroupWaitingEntry `json:"male"`
	Female []GroupWaitingEntry `json:"female"`
	Groups []string            `json:"groups"`
}

// Contains reports whether the user waits in either gender queue.
func (q *GroupQueues) Contains(userID string) bool {
	for _, e := range q.Male {
		if e.UserID == userID {
			return true
		}
	}
	for _, e := range q.Female {
		if e.UserID == userID {
			return true
		}
	}
	return false
}
