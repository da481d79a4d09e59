package id

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
// Calling Init more than once keeps the first node.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new unique int64 ID. Run IDs are minted here.
func New() int64 {
	return node.Generate().Int64()
}

// NewHandle returns a new ID in its base-10 string form. Outreach records
// and posted run messages are keyed by these handles.
func NewHandle() string {
	return strconv.FormatInt(New(), 10)
}
