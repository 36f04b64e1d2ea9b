package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClassification(t *testing.T) {
	t.Parallel()

	t.Run("valid request", func(t *testing.T) {
		t.Parallel()

		c, err := NewClassification("https://example.com/cat.jpg", 7)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, c.ID)
		assert.Equal(t, "https://example.com/cat.jpg", c.ImageURL)
		assert.Equal(t, 7, c.Priority)
		assert.Equal(t, ClassificationStatusPending, c.Status)
		assert.Empty(t, c.Labels)
		assert.WithinDuration(t, time.Now().UTC(), c.CreatedAt, time.Second)
	})

	t.Run("empty URL", func(t *testing.T) {
		t.Parallel()

		c, err := NewClassification("", 0)
		assert.ErrorIs(t, err, ErrEmptyImageURL)
		assert.Nil(t, c)
	})

	t.Run("relative URL", func(t *testing.T) {
		t.Parallel()

		c, err := NewClassification("images/cat.jpg", 0)
		assert.ErrorIs(t, err, ErrInvalidImageURL)
		assert.Nil(t, c)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		t.Parallel()

		c, err := NewClassification("ftp://example.com/cat.jpg", 0)
		assert.ErrorIs(t, err, ErrInvalidImageURL)
		assert.Nil(t, c)
	})
}

func TestClassificationValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Classification {
		return &Classification{
			ID:       uuid.New(),
			ImageURL: "http://example.com/dog.png",
			Status:   ClassificationStatusPending,
		}
	}

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, valid().Validate())
	})

	t.Run("nil ID", func(t *testing.T) {
		t.Parallel()

		c := valid()
		c.ID = uuid.Nil
		assert.ErrorIs(t, c.Validate(), ErrEmptyClassificationID)
	})

	t.Run("unknown status", func(t *testing.T) {
		t.Parallel()

		c := valid()
		c.Status = "archived"
		assert.ErrorIs(t, c.Validate(), ErrInvalidClassificationState)
	})
}

func TestClassificationUpdateStatus(t *testing.T) {
	t.Parallel()

	c, err := NewClassification("https://example.com/cat.jpg", 0)
	require.NoError(t, err)

	before := c.UpdatedAt
	time.Sleep(time.Millisecond)

	require.NoError(t, c.UpdateStatus(ClassificationStatusProcessing))
	assert.Equal(t, ClassificationStatusProcessing, c.Status)
	assert.True(t, c.UpdatedAt.After(before))

	err = c.UpdateStatus("bogus")
	assert.ErrorIs(t, err, ErrInvalidClassificationState)
	assert.Equal(t, ClassificationStatusProcessing, c.Status, "status should be unchanged on invalid update")
}
