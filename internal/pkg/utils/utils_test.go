package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPtr(t *testing.T) {
	p := Ptr(42)
	assert.Equal(t, 42, *p)
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	in := time.Date(2024, 3, 1, 2, 30, 0, 0, loc)

	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), DateOf(in))
}
