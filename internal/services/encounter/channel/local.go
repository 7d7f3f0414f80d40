package channel

import "context"

// Local delivers frames to in-process subscribers on the sender's goroutine.
type Local struct {
	subs subscriptions
}

// NewLocal creates an in-process channel.
func NewLocal() *Local {
	return &Local{}
}

// Send delivers payload to every current subscriber of topic.
func (l *Local) Send(ctx context.Context, topic Topic, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := encodeFrame(topic, payload)
	if err != nil {
		return err
	}
	l.subs.deliver(ctx, frame)
	return nil
}

// OnReceive subscribes h to topic.
func (l *Local) OnReceive(topic Topic, h Handler) func() {
	return l.subs.add(topic, h)
}
