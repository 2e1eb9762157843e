package domain

import (
	"fmt"
	"strings"
)

// ChangeResult is the outcome of a lifecycle command (cancel, modify,
// return) against a persisted entity R: either Applied or Rejected.
type ChangeResult[R any] interface {
	isChangeResult()
}

// Applied carries the entity after its status was updated.
type Applied[R any] struct {
	Record R
}

// Rejected carries the reasons a change was refused. NotFound is set when
// the target does not exist.
type Rejected[R any] struct {
	Reasons  []string
	NotFound bool
}

func (Applied[R]) isChangeResult()  {}
func (Rejected[R]) isChangeResult() {}

// Reject builds a Rejected result with a single reason.
func Reject[R any](reason string) Rejected[R] {
	return Rejected[R]{Reasons: []string{reason}}
}

// RejectNotFound builds a Rejected result for a missing entity.
func RejectNotFound[R any](entity, id string) Rejected[R] {
	return Rejected[R]{
		Reasons:  []string{fmt.Sprintf("%s %s was not found", entity, id)},
		NotFound: true,
	}
}

// statusRejection explains why an entity in status from may not move to to.
func statusRejection(entity, id, from, to string) string {
	if from == to {
		return fmt.Sprintf("%s %s is already %s", entity, id, humanize(from))
	}
	return fmt.Sprintf("%s %s is %s and cannot be %s", entity, id, humanize(from), humanize(to))
}

// humanize turns "CreditNoteIssued" into "credit note issued".
func humanize(status string) string {
	var b strings.Builder
	for i, r := range status {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
