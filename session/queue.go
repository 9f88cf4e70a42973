package session

import (
	"sync"

	"github.com/4cecoder/snakearena/models"
)

// MessageQueue holds outbound messages per session until the next flush.
type MessageQueue struct {
	mu       sync.Mutex
	messages map[string][]models.Message // map of session ID to pending messages
}

func NewMessageQueue() *MessageQueue {
	return &MessageQueue{
		messages: make(map[string][]models.Message),
	}
}

func (mq *MessageQueue) Enqueue(sessionID string, msg models.Message) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	mq.messages[sessionID] = append(mq.messages[sessionID], msg)
}

// Drain removes and returns every pending message for the session, oldest
// first.
func (mq *MessageQueue) Drain(sessionID string) []models.Message {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	messages := mq.messages[sessionID]
	delete(mq.messages, sessionID)
	return messages
}

func (mq *MessageQueue) QueueSize(sessionID string) int {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	return len(mq.messages[sessionID])
}

func (mq *MessageQueue) ClearQueue(sessionID string) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	delete(mq.messages, sessionID)
}
