// Package consumer handles anomaly-created events from the message bus and
// feeds them into the anchoring service.
package consumer

import (
	"context"
	"encoding/json"

	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/service"
	"github.com/chaintrace-systems/chaintrace-stack/common/logging"
	"github.com/chaintrace-systems/chaintrace-stack/common/messaging"
)

// Handler returns the message handler for detect.anomalies.created events.
// Decode failures are dropped (redelivering a malformed payload cannot
// succeed); anchoring errors propagate so the broker redelivers.
func Handler(svc *service.AnchorService, logger *logging.Logger) messaging.MessageHandler {
	return func(ctx context.Context, msg *messaging.Message) error {
		var evt messaging.AnomalyCreatedEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			logger.ErrorContext(ctx, "dropping malformed anomaly event",
				"subject", msg.Subject, logging.Error(err))
			return nil
		}
		if evt.Anomaly.ID == "" {
			logger.ErrorContext(ctx, "dropping anomaly event without an ID",
				"subject", msg.Subject)
			return nil
		}

		logger.DebugContext(ctx, "anchoring anomaly",
			logging.AnomalyID(evt.Anomaly.ID),
			logging.Severity(string(evt.Anomaly.Verdict.Severity)))

		if _, err := svc.Anchor(ctx, &evt.Anomaly); err != nil {
			logger.WarnContext(ctx, "anchoring failed, event will be redelivered",
				logging.AnomalyID(evt.Anomaly.ID), logging.Error(err))
			return err
		}
		return nil
	}
}
