package notify

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/fantasy-league-service/log"
	"github.com/mpapenbr/fantasy-league-service/pkg/model"
)

const (
	SubjectUserCreated = "fantasy.user.created"
	SubjectTeamCreated = "fantasy.team.created"
)

// Notifier announces newly created entities.
// Failures are logged by the implementation, callers are not affected.
type Notifier interface {
	UserCreated(ctx context.Context, u *model.User)
	TeamCreated(ctx context.Context, t *model.Team)
}

type Noop struct{}

func (Noop) UserCreated(ctx context.Context, u *model.User) {}
func (Noop) TeamCreated(ctx context.Context, t *model.Team) {}

// Publisher is the part of a NATS connection used here
type Publisher interface {
	Publish(subject string, data []byte) error
}

var (
	_ Notifier  = Noop{}
	_ Notifier  = (*NatsNotifier)(nil)
	_ Publisher = (*nats.Conn)(nil)
)

type NatsNotifier struct {
	pub Publisher
	l   *log.Logger
}

func NewNatsNotifier(pub Publisher) *NatsNotifier {
	return &NatsNotifier{
		pub: pub,
		l:   log.Default().Named("notify").Named("nats"),
	}
}

func (n *NatsNotifier) UserCreated(ctx context.Context, u *model.User) {
	n.publish(SubjectUserCreated, u)
}

func (n *NatsNotifier) TeamCreated(ctx context.Context, t *model.Team) {
	n.publish(SubjectTeamCreated, t)
}

func (n *NatsNotifier) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		n.l.Error("marshal notification", log.String("subject", subject), log.ErrorField(err))
		return
	}
	if err := n.pub.Publish(subject, data); err != nil {
		n.l.Warn("publish notification", log.String("subject", subject), log.ErrorField(err))
		return
	}
	n.l.Debug("published", log.String("subject", subject), log.Int("size", len(data)))
}
