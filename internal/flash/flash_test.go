package flash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_FlashClearAndSubscribe(t *testing.T) {
	b := NewBus()
	var seen []Message
	b.Subscribe(func(m Message) { seen = append(seen, m) })

	b.Flash(Success, "You upvoted the post")
	b.Flash(Error, "")
	b.Flash(Warning, "You have been silenced!")

	assert.Equal(t, []Message{
		{Category: Success, Text: "You upvoted the post"},
		{Category: Warning, Text: "You have been silenced!"},
	}, b.Messages())
	assert.Len(t, seen, 2)

	b.Clear()
	assert.Empty(t, b.Messages())
	assert.Len(t, seen, 2, "clearing does not notify subscribers")
}

func TestBus_Dismiss(t *testing.T) {
	b := NewBus()
	b.Flash(Information, "one")
	b.Flash(Information, "two")
	b.Flash(Information, "three")

	b.Dismiss(1)
	b.Dismiss(7)

	assert.Equal(t, []Message{
		{Category: Information, Text: "one"},
		{Category: Information, Text: "three"},
	}, b.Messages())
}
