package session

import (
	stderrors "errors"

	"github.com/c360/keystream/engine"
	"github.com/c360/keystream/errors"
	"github.com/c360/keystream/keyexpr"
	"github.com/c360/keystream/message"
	"github.com/c360/keystream/query"
)

// Query is one incoming query handed to a queryable callback. Replies may
// be sent any number of times while the callback runs; once it returns the
// query is complete and further replies fail with ErrQueryComplete.
type Query struct {
	sel    keyexpr.Selector
	handle engine.QueryHandle
	eng    engine.Engine
}

// Selector returns the full selector of the query.
func (q *Query) Selector() keyexpr.Selector {
	return q.sel
}

// KeyExpr returns the key expression part of the query's selector.
func (q *Query) KeyExpr() keyexpr.KeyExpr {
	return q.sel.KeySelector()
}

// ValueSelector returns the raw value selector string.
func (q *Query) ValueSelector() string {
	return q.sel.ValueSelectorString()
}

// DecodeValueSelector parses the value selector into its filter,
// properties and fragment. Duplicate property keys are rejected.
func (q *Query) DecodeValueSelector() (keyexpr.ValueSelector, error) {
	return q.sel.ParseValueSelector()
}

// Reply sends a sample back to the querier.
func (q *Query) Reply(sample message.Sample) error {
	if err := q.eng.Reply(q.handle, query.ReplyOK(sample, "")); err != nil {
		if stderrors.Is(err, errors.ErrQueryComplete) {
			return err
		}
		return errors.Wrap(err, "Query", "Reply", "send reply")
	}
	return nil
}

// ReplyErr sends an error value back to the querier.
func (q *Query) ReplyErr(value message.Value) error {
	if err := q.eng.Reply(q.handle, query.ReplyErr(value, "")); err != nil {
		if stderrors.Is(err, errors.ErrQueryComplete) {
			return err
		}
		return errors.Wrap(err, "Query", "ReplyErr", "send error reply")
	}
	return nil
}
