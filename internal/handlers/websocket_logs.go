package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	arborlevels "github.com/ternarybob/arbor/levels"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/routewise/routewise/internal/common"
)

// LogBroadcaster consumes log batches from arbor's context channel and
// forwards them to websocket clients. Chatty infrastructure lines
// (connection churn, request logging) are filtered out so the stream shows
// application activity.
type LogBroadcaster struct {
	handler         *WebSocketHandler
	channel         chan []arbormodels.LogEvent
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	minLevel        arborlevels.LogLevel
	excludePatterns []string
}

// NewLogBroadcaster creates a log broadcaster for the given websocket handler
func NewLogBroadcaster(handler *WebSocketHandler, wsConfig *common.WebSocketConfig) *LogBroadcaster {
	minLevel := arborlevels.InfoLevel
	var excludePatterns []string

	if wsConfig != nil {
		minLevel = parseLogLevel(wsConfig.MinLevel)
		excludePatterns = wsConfig.ExcludePatterns
	}
	if len(excludePatterns) == 0 {
		excludePatterns = []string{
			"WebSocket client connected",
			"WebSocket client disconnected",
			"HTTP request",
			"HTTP response",
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &LogBroadcaster{
		handler:         handler,
		channel:         make(chan []arbormodels.LogEvent, 10),
		ctx:             ctx,
		cancel:          cancel,
		minLevel:        minLevel,
		excludePatterns: excludePatterns,
	}
}

// Channel returns the channel for arbor to send log batches to, suitable
// for ILogger.SetChannel("context", ...)
func (b *LogBroadcaster) Channel() chan []arbormodels.LogEvent {
	return b.channel
}

// Start launches the consumer goroutine
func (b *LogBroadcaster) Start() {
	b.wg.Add(1)
	go b.consume()
}

// Stop gracefully shuts down the consumer
func (b *LogBroadcaster) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

// consume drains log batches and broadcasts the lines that pass the filters
func (b *LogBroadcaster) consume() {
	defer b.wg.Done()

	for {
		select {
		case batch, ok := <-b.channel:
			if !ok {
				return
			}
			for _, event := range batch {
				if entry, ok := b.transform(event); ok {
					b.handler.BroadcastLog(entry)
				}
			}

		case <-b.ctx.Done():
			return
		}
	}
}

// transform filters a log event and renders it as a client log entry
func (b *LogBroadcaster) transform(event arbormodels.LogEvent) (LogEntry, bool) {
	if arborlevels.FromLogLevel(event.Level) < b.minLevel {
		return LogEntry{}, false
	}

	for _, pattern := range b.excludePatterns {
		if strings.Contains(event.Message, pattern) {
			return LogEntry{}, false
		}
	}

	// Append structured fields to the message the way the console writer
	// renders them
	message := event.Message
	if len(event.Fields) > 0 {
		keys := make([]string, 0, len(event.Fields))
		for key := range event.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			message += fmt.Sprintf(" %s=%v", key, event.Fields[key])
		}
	}

	return LogEntry{
		Timestamp: event.Timestamp.Format("15:04:05"),
		Level:     mapLevel(arborlevels.FromLogLevel(event.Level)),
		Message:   message,
	}, true
}

// parseLogLevel converts a string log level to arbor levels.LogLevel
func parseLogLevel(level string) arborlevels.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return arborlevels.ErrorLevel
	case "warn", "warning":
		return arborlevels.WarnLevel
	case "info":
		return arborlevels.InfoLevel
	case "debug":
		return arborlevels.DebugLevel
	default:
		return arborlevels.InfoLevel
	}
}

// mapLevel maps arbor log levels to the strings the client renders
func mapLevel(level arborlevels.LogLevel) string {
	switch level {
	case arborlevels.ErrorLevel:
		return "error"
	case arborlevels.WarnLevel:
		return "warn"
	case arborlevels.InfoLevel:
		return "info"
	case arborlevels.DebugLevel:
		return "debug"
	default:
		return "info"
	}
}
