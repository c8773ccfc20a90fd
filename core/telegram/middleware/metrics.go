package middleware

import (
	"context"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/intakebot/core/telegram/helpers"
)

type counters struct {
	messages atomic.Int64
	kb       atomic.Bool
}

type countersKey struct{}

// CountMessage records one outgoing message on the counters carried by ctx.
// Sends made outside an instrumented update are ignored.
func CountMessage(ctx context.Context, hasKB bool) {
	if ctx == nil {
		return
	}
	cnt, ok := ctx.Value(countersKey{}).(*counters)
	if !ok {
		return
	}
	cnt.messages.Add(1)
	if hasKB {
		cnt.kb.Store(true)
	}
}

// metricsContext wraps tele.Context to count replies sent through the context.
type metricsContext struct {
	tele.Context
	cnt *counters
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m metricsContext) count(opts []interface{}) {
	m.cnt.messages.Add(1)
	if hasKeyboard(opts) {
		m.cnt.kb.Store(true)
	}
}

// Send proxies tele.Context.Send while updating message counters.
func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.count(opts)
	}
	return err
}

// Reply proxies tele.Context.Reply while updating message counters.
func (m metricsContext) Reply(what interface{}, opts ...interface{}) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.count(opts)
	}
	return err
}

// MessageMetricsMiddleware attaches message counters to the update context.
// Sends through the context wrapper and through CountMessage both land there.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := c.Get(countersCtxKey).(*counters); ok {
			return next(c)
		}
		cnt := &counters{}
		c.Set(countersCtxKey, cnt)
		ctx := context.WithValue(tghelpers.BuildContext(c), countersKey{}, cnt)
		tghelpers.StoreContext(c, ctx)
		return next(metricsContext{Context: c, cnt: cnt})
	}
}

const countersCtxKey = "metrics"

// GetCounters reads message count and keyboard presence flags for the update.
func GetCounters(c tele.Context) (int, bool) {
	cnt, ok := c.Get(countersCtxKey).(*counters)
	if !ok {
		return 0, false
	}
	return int(cnt.messages.Load()), cnt.kb.Load()
}
