package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeReader struct {
	msgs chan kafka.Message

	mu        sync.Mutex
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestConsumer(t *testing.T) {
	reader := &fakeReader{msgs: make(chan kafka.Message, 4)}
	core, recorded := observer.New(zap.ErrorLevel)
	consumer := newConsumer(reader, zap.New(core))

	var handled []Event
	consumer.RegisterHandler(func(_ context.Context, ev Event) error {
		if ev.Type == BatchFailed {
			return errors.New("handler refused")
		}
		handled = append(handled, ev)
		return nil
	})

	batchID := uint64(9)
	ok, err := json.Marshal(Event{Type: BatchCompleted, BatchID: &batchID, TotalRows: 2, SuccessCount: 2})
	require.NoError(t, err)
	refused, err := json.Marshal(Event{Type: BatchFailed, BatchID: &batchID})
	require.NoError(t, err)

	reader.msgs <- kafka.Message{Value: []byte("{not json")}
	reader.msgs <- kafka.Message{Value: refused}
	reader.msgs <- kafka.Message{Value: ok, Offset: 3}

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)

	require.Eventually(t, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()
		return len(reader.committed) == 1
	}, time.Second, 10*time.Millisecond)
	cancel()
	<-consumer.Done()
	consumer.Close()

	require.Len(t, handled, 1)
	assert.Equal(t, BatchCompleted, handled[0].Type)
	assert.Equal(t, 2, handled[0].SuccessCount)
	assert.Equal(t, int64(3), reader.committed[0].Offset)
	assert.Equal(t, 1, recorded.FilterMessage("Failed to parse event").Len())
	assert.Equal(t, 1, recorded.FilterMessage("Failed to handle event").Len())
	assert.True(t, reader.closed)
}
