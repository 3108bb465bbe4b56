package models

import "time"

type DoubtStatus string

const (
	DoubtOpen     DoubtStatus = "open"
	DoubtFinished DoubtStatus = "finished"
)

// DoubtRetention is how long a finished thread is kept before purge
const DoubtRetention = 24 * time.Hour

// DoubtSubjects lists the subjects a doubt can be filed under
var DoubtSubjects = []string{
	"Arrays",
	"Searching",
	"Sorting",
	"Linked Lists",
	"Stacks & Queues",
	"Trees",
	"Graphs",
	"Dynamic Programming",
	"General",
}

type DoubtMessage struct {
	ID         int64     `db:"id" json:"id"`
	DoubtID    int64     `db:"doubt_id" json:"-"`
	SenderID   int64     `db:"sender_id" json:"senderId"`
	SenderRole Role      `db:"sender_role" json:"senderRole"`
	Message    string    `db:"message" json:"message"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Doubt is a question thread between a learner and mentors
type Doubt struct {
	ID            int64          `db:"id" json:"id"`
	UserID        int64          `db:"user_id" json:"userId"`
	Subject       string         `db:"subject" json:"subject"`
	Title         string         `db:"title" json:"title"`
	Status        DoubtStatus    `db:"status" json:"status"`
	LastReplierID *int64         `db:"last_replier_id" json:"lastReplierId,omitempty"`
	FinishedAt    *time.Time     `db:"finished_at" json:"finishedAt,omitempty"`
	ExpireAt      *time.Time     `db:"expire_at" json:"expireAt,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
	Messages      []DoubtMessage `db:"-" json:"messages,omitempty"`
}

// ValidSubject reports whether s is a known doubt subject
func ValidSubject(s string) bool {
	for _, subject := range DoubtSubjects {
		if subject == s {
			return true
		}
	}
	return false
}
