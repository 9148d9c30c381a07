/*
 * MIT License
 *
 * Copyright (c) 2026 nabbar
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package queue

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Queue is a FIFO of byte slices guarded by a single mutex. The zero value
// is not usable; construct with New.
type Queue struct {
	mu   sync.Mutex
	buf  [][]byte
	cap  int // 0 = unbounded
	log  *logrus.Logger
	name string
}

// New returns an unbounded Queue: producers never block on Push.
func New() *Queue {
	return &Queue{log: logrus.StandardLogger()}
}

// NewBounded returns a Queue with a high-water mark. Once Push would grow
// the queue past capacity, the oldest element is dropped and a warning is
// logged. Opt-in only; New's unbounded behavior is unaffected.
func NewBounded(capacity int, log *logrus.Logger) *Queue {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Queue{cap: capacity, log: log, name: "bounded"}
}

// Push appends p to the back of the queue. p is not retained by reference
// beyond what the caller already owns; callers pass a freshly copied slice.
func (q *Queue) Push(p []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.buf = append(q.buf, p)

	if q.cap > 0 && len(q.buf) > q.cap {
		dropped := q.buf[0]
		q.buf = q.buf[1:]
		q.log.WithFields(logrus.Fields{
			"queue":        q.name,
			"capacity":     q.cap,
			"dropped_size": len(dropped),
		}).Warn("queue: high-water mark exceeded, dropped oldest frame")
	}
}

// Pop removes and returns the front element, or a zero-length non-nil
// slice if the queue is empty.
func (q *Queue) Pop() []byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.buf) == 0 {
		return []byte{}
	}

	p := q.buf[0]
	q.buf = q.buf[1:]
	return p
}

// NonEmpty reports whether Pop would currently return a buffered element.
func (q *Queue) NonEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) > 0
}

// Clear drops all buffered elements.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buf = nil
}

// Len reports the number of buffered elements. Used by tests and metrics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}
