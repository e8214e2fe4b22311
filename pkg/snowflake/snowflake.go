// Package snowflake generates the store-assigned message ids. Ids are
// time-ordered int64s, so they double as the clustering key that keeps a
// conversation partition in chronological order.
package snowflake

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	nodeBits        = 10
	stepBits        = 12
	nodeMax         = -1 ^ (-1 << nodeBits)
	stepMask        = -1 ^ (-1 << stepBits)
	timeShift       = nodeBits + stepBits
	nodeShift       = stepBits
	epoch     int64 = 1704067200000 // 2024-01-01 00:00:00 UTC
)

type Node struct {
	mu   sync.Mutex
	time int64
	node int64
	step int64
}

func NewNode(node int64) (*Node, error) {
	if node < 0 || node > nodeMax {
		return nil, errors.New("node number must be between 0 and 1023")
	}
	return &Node{node: node}, nil
}

// NodeFromEnv builds a node whose id comes from SNOWFLAKE_NODE, defaulting
// to 1. Each producing instance must use a distinct id.
func NodeFromEnv() (*Node, error) {
	id := int64(1)
	if s := os.Getenv("SNOWFLAKE_NODE"); s != "" {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		id = parsed
	}
	return NewNode(id)
}

// Generate returns the next id. Within one millisecond ids differ in the
// sequence bits; across milliseconds they differ in the timestamp bits, so
// later ids always compare greater.
func (n *Node) Generate() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now().UnixMilli()

	if now < n.time {
		// Clock moved backwards, hold the line until it catches up
		now = n.time
	}

	if n.time == now {
		n.step = (n.step + 1) & stepMask
		if n.step == 0 {
			for now <= n.time {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		n.step = 0
	}

	n.time = now

	return ((now - epoch) << timeShift) | (n.node << nodeShift) | n.step
}
