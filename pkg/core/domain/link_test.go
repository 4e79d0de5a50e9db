package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinkCode(t *testing.T) {
	alias := "promo"
	empty := ""

	assert.Equal(t, "abc1234", (&Link{ShortCode: "abc1234"}).Code())
	assert.Equal(t, "promo", (&Link{ShortCode: "abc1234", CustomAlias: &alias}).Code())
	assert.Equal(t, "abc1234", (&Link{ShortCode: "abc1234", CustomAlias: &empty}).Code())
	assert.Equal(t, []string{"abc1234", "promo"}, (&Link{ShortCode: "abc1234", CustomAlias: &alias}).Codes())
}

func TestLinkIsExpired(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	assert.False(t, (&Link{}).IsExpired(now))
	assert.True(t, (&Link{ExpiresAt: &past}).IsExpired(now))
	assert.False(t, (&Link{ExpiresAt: &future}).IsExpired(now))
}

func TestErrorTaxonomy(t *testing.T) {
	assert.True(t, IsValidation(ErrInvalidURL))
	assert.True(t, IsValidation(ErrInvalidAlias))
	assert.True(t, IsConflict(ErrAliasTaken))
	assert.True(t, IsConflict(fmt.Errorf("insert: %w", &CodeConflictError{Code: "x"})))
	assert.False(t, IsConflict(ErrNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", ErrNotFound)))
}
