package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash(""))
	assert.Len(t, Hash("merhaba"), 64)
}

func TestHashParts(t *testing.T) {
	assert.NotEqual(t, HashParts("ab", "c"), HashParts("a", "bc"))
	assert.Equal(t, HashParts("tr", "en", "x"), HashParts("tr", "en", "x"))
}
