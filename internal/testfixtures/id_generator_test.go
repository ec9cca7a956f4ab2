package testfixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("bk")

	assert.Equal(t, "", gen.Last())
	assert.Equal(t, "bk-1", gen.Next())
	assert.Equal(t, "bk-2", gen.NextFunc()())
	assert.Equal(t, "bk-2", gen.Last())
	assert.Equal(t, []string{"bk-1", "bk-2"}, gen.Issued())
}

func TestIDGeneratorIssuedIsACopy(t *testing.T) {
	gen := NewIDGenerator("")
	gen.Next()

	issued := gen.Issued()
	issued[0] = "tampered"
	assert.Equal(t, []string{"id-1"}, gen.Issued())
}

func TestIDGeneratorCanReset(t *testing.T) {
	gen := NewIDGenerator("msg")
	gen.Next()

	gen.Reset("usr")
	assert.Empty(t, gen.Issued())
	assert.Equal(t, "usr-1", gen.Next())

	gen.Reset("")
	assert.Equal(t, "usr-1", gen.Next())
}
