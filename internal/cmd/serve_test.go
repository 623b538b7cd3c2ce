package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "***", maskAPIKey(""))
	assert.Equal(t, "***", maskAPIKey("sk-short"))
	assert.Equal(t, "sk-a...wxyz", maskAPIKey("sk-abcdefghijklmnopqrstuvwxyz"))
}
