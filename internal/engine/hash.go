package engine

import (
	"time"

	pkgerrors "lattice/pkg/errors"
)

// Hash operations. A hash is an edge-free graph whose node ids are the keys
// and whose payloads are the values; all governance applies unchanged.

// Set stores value under key, creating the entry or replacing it. The value
// passes through every attached behavior either way.
func (e *Engine) Set(key string, value any) error {
	defer e.observe("set", time.Now())

	if key == "" {
		return pkgerrors.NewValidation("hash key is required")
	}
	if e.graph.HasNode(key) {
		return e.SetValue(key, value)
	}
	return e.AddNode(key, value)
}

// Get returns the value stored under key.
func (e *Engine) Get(key string) (any, error) {
	e.opt.RecordOperation("get")
	return e.NodeValue(key)
}

// Delete removes the entry under key, reporting whether it existed.
func (e *Engine) Delete(key string) (bool, error) {
	e.opt.RecordOperation("delete")
	if !e.graph.HasNode(key) {
		return false, nil
	}
	if err := e.RemoveNode(key); err != nil {
		return false, err
	}
	return true, nil
}

// Keys returns every key in insertion order.
func (e *Engine) Keys() []string {
	e.opt.RecordOperation("keys")
	return e.graph.NodeIDs()
}
