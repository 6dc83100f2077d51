package channels

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/bus"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/config"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/logger"
)

// ErrNoChannels is returned when no chat channel is configured.
var ErrNoChannels = errors.New("no chat channels configured")

// Manager owns the configured channels and delivers outbound bus messages
// to them.
type Manager struct {
	bus *bus.MessageBus

	mu       sync.RWMutex
	channels map[string]Channel
}

func NewManager(msgBus *bus.MessageBus) *Manager {
	return &Manager{
		bus:      msgBus,
		channels: make(map[string]Channel),
	}
}

// NewManagerFromConfig registers every channel that has credentials.
func NewManagerFromConfig(cfg *config.Config, msgBus *bus.MessageBus) (*Manager, error) {
	m := NewManager(msgBus)
	if strings.TrimSpace(cfg.Channels.Discord.Token) != "" {
		discord, err := NewDiscordChannel(cfg.Channels.Discord, msgBus)
		if err != nil {
			return nil, fmt.Errorf("initialize discord channel: %w", err)
		}
		m.Register(discord)
	}
	if len(m.Names()) == 0 {
		return nil, ErrNoChannels
	}
	return m, nil
}

func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run starts every channel, dispatches outbound messages until ctx is done
// and then stops the channels. A channel that fails to start aborts the run.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.RLock()
	chans := make([]Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		chans = append(chans, ch)
	}
	m.mu.RUnlock()

	var started []Channel
	var errs []error
	for _, ch := range chans {
		if err := ch.Start(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		started = append(started, ch)
	}
	defer func() {
		for _, ch := range started {
			if err := ch.Stop(context.Background()); err != nil {
				logger.WarnCF("channels", "Failed to stop channel", map[string]interface{}{
					"channel": ch.Name(),
					"error":   err.Error(),
				})
			}
		}
	}()
	if len(errs) > 0 {
		return fmt.Errorf("start channels: %w", errors.Join(errs...))
	}

	logger.InfoCF("channels", "Channels started", map[string]interface{}{"count": len(started)})
	m.dispatchOutbound(ctx)
	return nil
}

func (m *Manager) dispatchOutbound(ctx context.Context) {
	for {
		msg, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			logger.InfoC("channels", "Outbound dispatcher stopped")
			return
		}

		m.mu.RLock()
		ch, exists := m.channels[msg.Channel]
		m.mu.RUnlock()
		if !exists {
			logger.WarnCF("channels", "Unknown channel for outbound message", map[string]interface{}{
				"channel": msg.Channel,
			})
			continue
		}
		if err := ch.Send(ctx, msg); err != nil {
			logger.ErrorCF("channels", "Failed to deliver message", map[string]interface{}{
				"channel": msg.Channel,
				"chat_id": msg.ChatID,
				"error":   err.Error(),
			})
		}
	}
}

// Status reports whether each channel is running, for readiness checks.
func (m *Manager) Status() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := make(map[string]bool, len(m.channels))
	for name, ch := range m.channels {
		status[name] = ch.IsRunning()
	}
	return status
}
