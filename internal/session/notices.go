// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"sync"
	"time"
)

// NoticeLevel is the severity of a user-visible message.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a toast the SPA shows once.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// maxNotices bounds the queue; the oldest notices are dropped first.
const maxNotices = 32

// Notices is a per-tab FIFO of pending notices.
type Notices struct {
	mu      sync.Mutex
	pending []Notice
	now     func() time.Time
}

// NewNotices creates an empty queue.
func NewNotices() *Notices {
	return &Notices{now: time.Now}
}

// Push queues a notice.
func (queue *Notices) Push(level NoticeLevel, message string) {
	queue.mu.Lock()
	defer queue.mu.Unlock()

	queue.pending = append(queue.pending, Notice{Level: level, Message: message, At: queue.now()})
	if overflow := len(queue.pending) - maxNotices; overflow > 0 {
		queue.pending = append([]Notice(nil), queue.pending[overflow:]...)
	}
}

// Drain returns and removes every pending notice, oldest first.
func (queue *Notices) Drain() []Notice {
	queue.mu.Lock()
	defer queue.mu.Unlock()

	drained := queue.pending
	queue.pending = nil
	if drained == nil {
		return []Notice{}
	}
	return drained
}
