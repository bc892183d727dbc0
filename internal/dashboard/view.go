package dashboard

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rickgao/autofilm-dash/internal/channel"
)

// Subscriber is the part of the channel manager a view uses.
type Subscriber interface {
	Subscribe(topic string, listener channel.Listener) *channel.Subscription
	Unsubscribe(sub *channel.Subscription)
}

// attachment tracks the subscriptions a view holds on one manager.
type attachment struct {
	mu   sync.Mutex
	src  Subscriber
	subs []*channel.Subscription
}

func (a *attachment) attach(s Subscriber, listener channel.Listener, topics ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.detachLocked()
	a.src = s
	for _, topic := range topics {
		a.subs = append(a.subs, s.Subscribe(topic, listener))
	}
}

func (a *attachment) detach() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detachLocked()
}

func (a *attachment) detachLocked() {
	if a.src == nil {
		return
	}
	for _, sub := range a.subs {
		a.src.Unsubscribe(sub)
	}
	a.src = nil
	a.subs = nil
}

// printer serializes line writes from listeners.
type printer struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func newPrinter(out io.Writer) *printer {
	if out == nil {
		out = io.Discard
	}
	return &printer{out: out, now: time.Now}
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s "+format+"\n", append([]any{p.now().Format("15:04:05")}, args...)...)
}

func (p *printer) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	io.WriteString(p.out, s)
}
