package logger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"insure-crm/internal/config"
	"insure-crm/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap/zapcore"
)

// LogEntry holds the data passed from Zap to our worker
type LogEntry struct {
	Level   zapcore.Level
	Message string
	Caller  string
	Fields  map[string]interface{}
	Time    time.Time
}

// LogRecord is the stored form; structured fields (evaluator, agent_id, run_id, ...) stay queryable.
type LogRecord struct {
	AppId      string                 `bson:"app_id"`
	Level      string                 `bson:"level"`
	LogLevelId int                    `bson:"log_level_id"`
	Message    string                 `bson:"message"`
	Caller     string                 `bson:"caller,omitempty"`
	Fields     map[string]interface{} `bson:"fields,omitempty"`
	CreatedAt  time.Time              `bson:"created_at"`
}

// DBLogWriter handles the async writing
type DBLogWriter struct {
	collection *mongo.Collection
	logChan    chan LogEntry
	appId      string
	done       chan struct{}
	mu         sync.RWMutex
	closed     bool
}

// NewDBLogWriter initializes the worker
func NewDBLogWriter(mongodb *database.MongodbDB, cfg *config.Config) *DBLogWriter {
	writer := &DBLogWriter{
		collection: mongodb.DB.Collection("logs"),
		logChan:    make(chan LogEntry, 1000),
		appId:      cfg.AppId,
		done:       make(chan struct{}),
	}

	go writer.processLogs()

	return writer
}

// AddLog is called by our Zap hook
func (w *DBLogWriter) AddLog(entry LogEntry) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.logChan <- entry:
	default:
		// Channel full: drop rather than block the caller
		fmt.Println("DB Log Channel Full! Dropping log:", entry.Message)
	}
}

// Close drains pending entries and stops the worker.
func (w *DBLogWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.logChan)
	w.mu.Unlock()
	<-w.done
}

func (w *DBLogWriter) processLogs() {
	defer close(w.done)
	for entry := range w.logChan {
		record := LogRecord{
			AppId:      w.appId,
			Level:      entry.Level.String(),
			LogLevelId: mapLevelToInt(entry.Level),
			Message:    entry.Message,
			Caller:     entry.Caller,
			Fields:     entry.Fields,
			CreatedAt:  entry.Time.UTC(),
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		// errors are ignored so logging never takes the app down
		_, _ = w.collection.InsertOne(ctx, record)
		cancel()
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
