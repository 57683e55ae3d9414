package status

import (
	"container/list"
	"sync"
)

// ConsoleCapacity is the maximum number of lines kept in the console buffer.
const ConsoleCapacity = 1000

// ConsoleLine is one captured line of child output.
type ConsoleLine struct {
	Seq  uint32
	Line string
}

// Console is a bounded log of output lines, newest first.
type Console struct {
	mu    sync.Mutex
	lines *list.List // of ConsoleLine, front = newest
	next  uint32
}

func NewConsole() *Console {
	return &Console{lines: list.New()}
}

// Append stores line under the next sequence number and evicts the oldest
// entries beyond ConsoleCapacity.
func (c *Console) Append(line string) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.next
	c.next++
	c.lines.PushFront(ConsoleLine{Seq: seq, Line: line})
	for c.lines.Len() > ConsoleCapacity {
		c.lines.Remove(c.lines.Back())
	}
	return seq
}

// Snapshot copies the buffer, newest first.
func (c *Console) Snapshot() []ConsoleLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ConsoleLine, 0, c.lines.Len())
	for e := c.lines.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(ConsoleLine))
	}
	return out
}
