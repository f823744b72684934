package notify

import (
	"sync"
	"time"

	"enrollment-portal/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Level is the toast severity
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

const defaultHistory = 50

// Toast is one user-visible notification
type Toast struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Center keeps a bounded history of toasts for the presentation layer to
// render and fans new ones out to listeners.
type Center struct {
	mu        sync.Mutex
	toasts    []Toast
	max       int
	listeners []chan Toast
	logger    *zap.Logger
}

// NewCenter creates a center retaining up to history toasts
func NewCenter(history int) *Center {
	if history <= 0 {
		history = defaultHistory
	}
	return &Center{
		max:    history,
		logger: util.GetLogger(),
	}
}

func (c *Center) Success(message string) {
	c.push(LevelSuccess, message)
}

func (c *Center) Error(message string) {
	c.push(LevelError, message)
}

func (c *Center) push(level Level, message string) {
	t := Toast{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	c.toasts = append(c.toasts, t)
	if len(c.toasts) > c.max {
		c.toasts = append([]Toast(nil), c.toasts[len(c.toasts)-c.max:]...)
	}
	for _, l := range c.listeners {
		select {
		case l <- t:
		default:
		}
	}
	c.mu.Unlock()

	c.logger.Info("Toast", zap.String("level", string(level)), zap.String("message", message))
}

// List returns the retained toasts, oldest first
func (c *Center) List() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Toast(nil), c.toasts...)
}

// Drain returns and forgets the retained toasts
func (c *Center) Drain() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.toasts
	c.toasts = nil
	return out
}

// Listen returns a channel receiving new toasts. Slow listeners miss toasts
// rather than block producers.
func (c *Center) Listen(buffer int) <-chan Toast {
	ch := make(chan Toast, buffer)
	c.mu.Lock()
	c.listeners = append(c.listeners, ch)
	c.mu.Unlock()
	return ch
}
