// File: internal/notification/logger.go
package notification

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// LogSink writes every notification to the application log
type LogSink struct {
	logger *logrus.Entry
}

// NewLogSink creates a log sink
func NewLogSink() *LogSink {
	return &LogSink{logger: utils.ComponentLogger("notification")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, n *Notification) error {
	e := n.Event
	s.logger.WithFields(logrus.Fields{
		"event_id":     e.ID,
		"chain":        e.ChainID,
		"direction":    e.Direction,
		"address":      e.MatchedAddress,
		"counterparty": e.Counterparty,
		"amount":       e.Amount.String(),
		"height":       e.Height,
		"tx_hash":      e.TxHash,
	}).Info("Match detected")
	return nil
}

func (s *LogSink) Close() error { return nil }
