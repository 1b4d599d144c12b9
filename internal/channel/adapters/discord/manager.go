package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/namastexlabs/automagik-omni/internal/channel"
)

const (
	defaultMaxFailures = 5
	defaultBaseDelay   = 2 * time.Second
	defaultMaxDelay    = 60 * time.Second
)

// SessionSource is the narrow read interface the Handler uses against the
// session registry: lookup only, never mutation. Tolerating a missing entry
// at any time is part of the contract.
type SessionSource interface {
	Session(instance string) (*discordgo.Session, channel.ConnectionState, bool)
}

// Manager owns the per-instance registry of live discordgo sessions and their
// connection lifecycle: login, exponential-backoff reconnects, and a circuit
// breaker after repeated failures. Nothing outside the manager mutates a
// session or its state.
type Manager struct {
	logger      *slog.Logger
	maxFailures int
	baseDelay   time.Duration
	maxDelay    time.Duration

	mu    sync.RWMutex
	conns map[string]*managedConn
}

type managedConn struct {
	session  *discordgo.Session
	state    channel.ConnectionState
	failures int
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewManager creates a connection manager. maxFailures bounds consecutive
// connect failures before the circuit opens; non-positive means the default.
func NewManager(log *slog.Logger, maxFailures int) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	return &Manager{
		logger:      log.With(slog.String("component", "discord-manager")),
		maxFailures: maxFailures,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
		conns:       map[string]*managedConn{},
	}
}

// Start begins managing a connection for the instance. Starting an already
// managed instance is a no-op.
func (m *Manager) Start(ctx context.Context, inst channel.Instance) error {
	cfg, err := parseConfig(inst.Credentials)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.conns[inst.Name]; exists {
		m.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	conn := &managedConn{
		state:  channel.StateConnecting,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.conns[inst.Name] = conn
	m.mu.Unlock()

	go m.run(runCtx, inst.Name, cfg, conn)
	return nil
}

// Stop terminates the connection for the instance and removes it from the
// registry.
func (m *Manager) Stop(ctx context.Context, instance string) error {
	m.mu.Lock()
	conn, ok := m.conns[instance]
	delete(m.conns, instance)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	conn.cancel()
	select {
	case <-conn.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopAll terminates every managed connection.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	names := make([]string, 0, len(m.conns))
	for name := range m.conns {
		names = append(names, name)
	}
	m.mu.Unlock()
	var errs error
	for _, name := range names {
		if err := m.Stop(ctx, name); err != nil {
			errs = errors.Join(errs, fmt.Errorf("stop %s: %w", name, err))
		}
	}
	return errs
}

// Session returns the live session and connection state for the instance.
// The session may be nil while the connection is being established.
func (m *Manager) Session(instance string) (*discordgo.Session, channel.ConnectionState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.conns[instance]
	if !ok {
		return nil, "", false
	}
	return conn.session, conn.state, true
}

func (m *Manager) run(ctx context.Context, instance string, cfg Config, conn *managedConn) {
	defer close(conn.done)
	delay := m.baseDelay

	for {
		session, err := m.connect(instance, cfg, conn)
		if err != nil {
			failures := m.recordFailure(instance, conn)
			if failures >= m.maxFailures {
				m.setState(instance, conn, channel.StateCircuitOpen)
				m.logger.Error("circuit open after repeated connect failures",
					slog.String("instance", instance),
					slog.Int("failures", failures),
					slog.Any("error", err),
				)
				return
			}
			m.setState(instance, conn, channel.StateBackoff)
			m.logger.Warn("connect failed, backing off",
				slog.String("instance", instance),
				slog.Duration("delay", delay),
				slog.Any("error", err),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > m.maxDelay {
				delay = m.maxDelay
			}
			continue
		}

		delay = m.baseDelay
		m.logger.Info("connected", slog.String("instance", instance))

		// discordgo resumes dropped gateway connections itself; the Ready,
		// Resumed, and Disconnect handlers keep the published state accurate
		// while we wait for shutdown.
		<-ctx.Done()
		if err := session.Close(); err != nil {
			m.logger.Warn("session close failed", slog.String("instance", instance), slog.Any("error", err))
		}
		m.setState(instance, conn, channel.StateFailed)
		return
	}
}

func (m *Manager) connect(instance string, cfg Config, conn *managedConn) (*discordgo.Session, error) {
	m.setState(instance, conn, channel.StateConnecting)
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildPresences
	session.StateEnabled = true

	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Ready) {
		m.setState(instance, conn, channel.StateConnected)
	})
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		m.setState(instance, conn, channel.StateConnected)
	})
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		m.setState(instance, conn, channel.StateBackoff)
	})

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("open gateway: %w", err)
	}

	m.mu.Lock()
	conn.session = session
	conn.state = channel.StateConnected
	conn.failures = 0
	m.mu.Unlock()
	return session, nil
}

func (m *Manager) setState(instance string, conn *managedConn, state channel.ConnectionState) {
	m.mu.Lock()
	previous := conn.state
	conn.state = state
	m.mu.Unlock()
	if previous != state {
		m.logger.Debug("connection state changed",
			slog.String("instance", instance),
			slog.String("from", string(previous)),
			slog.String("to", string(state)),
		)
	}
}

func (m *Manager) recordFailure(instance string, conn *managedConn) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn.failures++
	return conn.failures
}
