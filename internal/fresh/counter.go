// Package fresh provides the single monotonic counter the lowering pipeline
// uses to allocate basic-block labels and SSA names.
//
// The whole pipeline runs as a single synchronous pass, so Counter is a
// plain struct with a typed-prefix-plus-numeric-suffix naming scheme: no
// channel, no goroutine. Counter must keep ticking across a shadowed stack
// and the loop engine's in-place rebinding — callers never reset it, they
// only save and restore the scope stack around it.
package fresh

import "fmt"

// Counter is a monotonic, process-local (single compilation) sequence
// generator for block labels and SSA-disambiguating name suffixes.
type Counter struct {
	n uint64
}

// Next returns the next unique integer, starting at 0.
func (c *Counter) Next() uint64 {
	v := c.n
	c.n++
	return v
}

// Block returns a fresh basic-block label.
func (c *Counter) Block() string {
	return fmt.Sprintf("block%d", c.Next())
}

// SSA returns a fresh internal name for a local rebound by assignment,
// disambiguating the source name with a numeric suffix.
func (c *Counter) SSA(name string) string {
	return fmt.Sprintf("%s.%d", name, c.Next())
}

// Lambda returns a fresh internal function name for a lifted lambda.
func (c *Counter) Lambda() string {
	return fmt.Sprintf("lambda%d", c.Next())
}

// Class returns a fresh internal type-alias name for a class.
func (c *Counter) Class(sourceName string) string {
	return fmt.Sprintf("class.%s.%d", sourceName, c.Next())
}

// ClassID allocates a fresh, never-reused class identifier.
func (c *Counter) ClassID() uint64 {
	return c.Next()
}
