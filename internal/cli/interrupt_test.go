package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInterruptHandler(t *testing.T) {
	tests := []struct {
		writer io.Writer
		name   string
	}{
		{
			name:   "with custom writer",
			writer: &bytes.Buffer{},
		},
		{
			name:   "with nil writer",
			writer: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewInterruptHandler(tt.writer)
			assert.NotNil(t, handler)
			assert.NotNil(t, handler.writer)
			assert.False(t, handler.WasInterrupted())
		})
	}
}

func TestInterrupt_CancelsContext(t *testing.T) {
	output := &bytes.Buffer{}
	handler := NewInterruptHandler(output)

	ctx := handler.HandleInterrupts(context.Background(), "mosaic classify --pending")

	select {
	case <-ctx.Done():
		t.Fatal("Context should not be canceled initially")
	default:
	}

	handler.Interrupt()
	<-ctx.Done()

	assert.True(t, handler.WasInterrupted())
	out := output.String()
	assert.Contains(t, out, "Classification interrupted!")
	assert.Contains(t, out, "Resume with: mosaic classify --pending")
}

func TestInterrupt_OnlyOnce(t *testing.T) {
	output := &bytes.Buffer{}
	handler := NewInterruptHandler(output)
	_ = handler.HandleInterrupts(context.Background(), "")

	handler.Interrupt()
	handler.Interrupt()

	out := output.String()
	assert.Equal(t, 1, strings.Count(out, "Classification interrupted!"))
	assert.NotContains(t, out, "Resume with")
}

func TestHandleInterrupts_ParentCancel(t *testing.T) {
	handler := NewInterruptHandler(&bytes.Buffer{})
	parent, cancel := context.WithCancel(context.Background())
	ctx := handler.HandleInterrupts(parent, "")

	cancel()
	<-ctx.Done()
	assert.False(t, handler.WasInterrupted())
}

func TestStop_DoesNotMarkInterrupted(t *testing.T) {
	output := &bytes.Buffer{}
	handler := NewInterruptHandler(output)
	ctx := handler.HandleInterrupts(context.Background(), "mosaic classify --pending")

	handler.Stop()
	<-ctx.Done()

	assert.False(t, handler.WasInterrupted())
	assert.Empty(t, output.String())
}
