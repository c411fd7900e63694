package kafka

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/pitradio"
	c "github.com/unkn0wn-root/pitradio/codec"
	"github.com/unkn0wn-root/pitradio/provider/ristretto"
)

// memTopic implements Writer and Reader over a slice.
type memTopic struct {
	msgs      []kafka.Message
	next      int
	committed []int64
	failWrite error
}

func (m *memTopic) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.failWrite != nil {
		return m.failWrite
	}
	for _, msg := range msgs {
		msg.Offset = int64(len(m.msgs))
		m.msgs = append(m.msgs, msg)
	}
	return nil
}

func (m *memTopic) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if m.next >= len(m.msgs) {
		return kafka.Message{}, io.EOF
	}
	msg := m.msgs[m.next]
	m.next++
	return msg, ctx.Err()
}

func (m *memTopic) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		m.committed = append(m.committed, msg.Offset)
	}
	return nil
}

func (m *memTopic) Close() error { return nil }

func newJournal(t *testing.T) pitradio.Journal {
	t.Helper()
	p, err := ristretto.New(ristretto.Config{NumCounters: 1e4, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)
	j, err := pitradio.New(pitradio.Options{Namespace: "car44", Provider: p})
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close(context.Background()) })
	return j
}

func TestPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	topic := &memTopic{}
	pub := NewPublisher(topic, newJournal(t), nil)
	sub := NewSubscriber(topic, 0, nil)

	tx1, err := pub.Publish(ctx, []string{"Push", "Box,box"})
	require.NoError(t, err)
	tx2, err := pub.Publish(ctx, []string{"", "温度"})
	require.NoError(t, err)

	require.Equal(t, "4:Push7:Box,box", string(topic.msgs[0].Value))
	require.Equal(t, tx1.ID, string(topic.msgs[0].Key))

	got, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Push", "Box,box"}, got.Commands)
	require.Equal(t, tx1.Seq, got.Seq)
	require.Equal(t, tx1.ID, got.ID)

	got, err = sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"", "温度"}, got.Commands)
	require.Equal(t, tx2.Seq, got.Seq)
	require.Equal(t, []int64{0, 1}, topic.committed)

	_, err = sub.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestPublishRejectsInvalidText(t *testing.T) {
	topic := &memTopic{}
	pub := NewPublisher(topic, newJournal(t), nil)
	_, err := pub.Publish(context.Background(), []string{"\xff"})
	require.ErrorIs(t, err, c.ErrEncoding)
	require.Empty(t, topic.msgs)
}

func TestPublishWriteError(t *testing.T) {
	boom := errors.New("broker down")
	pub := NewPublisher(&memTopic{failWrite: boom}, newJournal(t), nil)
	_, err := pub.Publish(context.Background(), []string{"Push"})
	require.ErrorIs(t, err, boom)
}

func TestSubscriberUndecodableMessage(t *testing.T) {
	topic := &memTopic{}
	require.NoError(t, topic.WriteMessages(context.Background(),
		kafka.Message{Value: []byte("4:Pus")},
		kafka.Message{Value: []byte("4:Push")},
		kafka.Message{Value: []byte("8:Overtake")},
	))
	sub := NewSubscriber(topic, 6, nil)

	_, err := sub.Next(context.Background())
	var me *MessageError
	require.ErrorAs(t, err, &me)
	require.Equal(t, int64(0), me.Offset)
	require.ErrorIs(t, err, c.ErrInsufficientData)

	got, err := sub.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Push"}, got.Commands)

	_, err = sub.Next(context.Background())
	require.ErrorIs(t, err, c.ErrPayloadTooLarge)

	// bad messages are committed too
	require.Equal(t, []int64{0, 1, 2}, topic.committed)
}

func TestSubscriberMalformedSeqHeader(t *testing.T) {
	topic := &memTopic{}
	require.NoError(t, topic.WriteMessages(context.Background(),
		kafka.Message{Key: []byte("a"), Value: []byte("4:Push"), Headers: []kafka.Header{{Key: "seq", Value: []byte("forty-two")}}},
		kafka.Message{Key: []byte("b"), Value: []byte("3:Box")},
	))
	sub := NewSubscriber(topic, 0, nil)

	got, err := sub.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Push"}, got.Commands)
	require.Equal(t, uint64(0), got.Seq)
	require.Error(t, got.SeqErr)
	require.Contains(t, got.SeqErr.Error(), "forty-two")

	got, err = sub.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(0), got.Seq)
	require.NoError(t, got.SeqErr)
}

func TestConfigValidation(t *testing.T) {
	_, err := NewWriter(Config{Topic: "radio"})
	require.Error(t, err)
	_, err = NewReader(Config{Brokers: []string{"localhost:9092"}, Topic: "radio"})
	require.Error(t, err)

	w, err := NewWriter(Config{Brokers: []string{"localhost:9092"}, Topic: "radio"})
	require.NoError(t, err)
	require.Equal(t, "radio", w.Topic)
}
