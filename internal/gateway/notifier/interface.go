package notifier

import "deepfund/internal/logger"

// TextNotifier defines a minimal text notification interface.
type TextNotifier interface {
	SendText(text string) error
}

// Nop discards every message.
type Nop struct{}

func (Nop) SendText(text string) error {
	logger.Debugf("notifier disabled, dropping %d bytes", len(text))
	return nil
}
