package enforce

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnforce(t *testing.T) {
	assert.NotPanics(t, func() { ENFORCE(true, "fine") })
	assert.NotPanics(t, func() { ENFORCE(nil) })
	var err error
	assert.NotPanics(t, func() { ENFORCE(err) })

	assert.Panics(t, func() { ENFORCE(false, "start[n] != m") })
	assert.Panics(t, func() { ENFORCE(errors.New("mmap failed"), "partition", 1) })
	assert.Panics(t, func() { ENFORCE("unreachable") })
	assert.Panics(t, func() { ENFORCE(42) })
}
