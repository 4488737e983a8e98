package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusDeliversInOrder(t *testing.T) {
	b := NewBus()

	var got []string
	b.Subscribe("t", func(p interface{}) { got = append(got, "a:"+p.(string)) })
	b.Subscribe("t", func(p interface{}) { got = append(got, "b:"+p.(string)) })
	b.Subscribe("other", func(p interface{}) { got = append(got, "x") })

	b.Publish("t", "1")
	b.Publish("t", "2")

	assert.Equal(t, []string{"a:1", "b:1", "a:2", "b:2"}, got)
}

func TestBusIsolatesPanickingHandler(t *testing.T) {
	b := NewBus()

	called := false
	b.Subscribe("t", func(interface{}) { panic("boom") })
	b.Subscribe("t", func(interface{}) { called = true })

	assert.NotPanics(t, func() { b.Publish("t", nil) })
	assert.True(t, called)
}
