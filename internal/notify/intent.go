// Package notify turns domain events into email. Producers enqueue an
// Intent and move on; a Worker drains the queue and talks to the mailer.
package notify

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindAccountPurged  Kind = "account_purged"
	KindAccountDeleted Kind = "account_deleted"
	KindProductRemoved Kind = "product_removed"
	KindPasswordReset  Kind = "password_reset"
)

type Intent struct {
	Kind      Kind      `json:"kind"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func newIntent(kind Kind, to, subject, body string) Intent {
	return Intent{Kind: kind, To: to, Subject: subject, Body: body, CreatedAt: time.Now().UTC()}
}

func AccountPurged(email string) Intent {
	return newIntent(KindAccountPurged, email,
		"Your account was removed",
		"Your account was deleted after two days without activity.")
}

func AccountDeleted(email string) Intent {
	return newIntent(KindAccountDeleted, email,
		"Your account was removed",
		"Your account was deleted by an administrator.")
}

func ProductRemoved(email, title string) Intent {
	return newIntent(KindProductRemoved, email,
		"Your product was removed",
		fmt.Sprintf("Your product %q was removed from the catalog.", title))
}

func PasswordReset(email, link string) Intent {
	return newIntent(KindPasswordReset, email,
		"Password reset",
		fmt.Sprintf("Use this link to choose a new password. It expires in one hour.\n\n%s", link))
}
