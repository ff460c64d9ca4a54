package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobTimeout(t *testing.T) {
	assert.Equal(t, 40*time.Second, JobTimeout(5*time.Second, 0))
	assert.Equal(t, time.Duration(-1), JobTimeout(5*time.Second, 4))
}
