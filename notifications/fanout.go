package notifications

import (
	"context"

	"github.com/anjiri1684/learnhub/services"
)

// Fanout forwards every event to each notifier in order.
type Fanout []services.Notifier

func (f Fanout) CertificateIssued(ctx context.Context, ev services.IssuedEvent) {
	for _, n := range f {
		n.CertificateIssued(ctx, ev)
	}
}
