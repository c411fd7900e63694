// Package kafka carries encoded command lists over Kafka topics.
//
// Each message value is one frames buffer; the key is the transmission ID
// and the "seq" header holds the journal sequence number.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/unkn0wn-root/pitradio"
	c "github.com/unkn0wn-root/pitradio/codec"
)

const seqHeader = "seq"

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader is the subset of *kafka.Reader the subscriber needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string // subscriber only
}

func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka: at least one broker is required")
	}
	if c.Topic == "" {
		return errors.New("kafka: topic is required")
	}
	return nil
}

// NewWriter builds a writer that keeps messages with the same key on one partition.
func NewWriter(cfg Config) (*kafka.Writer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, nil
}

func NewReader(cfg Config) (*kafka.Reader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.GroupID == "" {
		return nil, errors.New("kafka: group id is required")
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	}), nil
}

// Publisher records each command list in a journal, then writes its frames to Kafka.
type Publisher struct {
	w   Writer
	j   pitradio.Journal
	log pitradio.Logger
}

func NewPublisher(w Writer, j pitradio.Journal, log pitradio.Logger) *Publisher {
	if log == nil {
		log = pitradio.NopLogger{}
	}
	return &Publisher{w: w, j: j, log: log}
}

func (p *Publisher) Publish(ctx context.Context, commands []string) (pitradio.Transmission, error) {
	tx, err := p.j.Transmit(ctx, commands)
	if err != nil {
		return pitradio.Transmission{}, err
	}
	msg := kafka.Message{
		Key:   []byte(tx.ID),
		Value: []byte(tx.Frames),
		Headers: []kafka.Header{
			{Key: seqHeader, Value: []byte(strconv.FormatUint(tx.Seq, 10))},
		},
		Time: tx.SentAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.log.Error("kafka publish failed", pitradio.Fields{"seq": tx.Seq, "err": err})
		return pitradio.Transmission{}, fmt.Errorf("kafka: publish seq %d: %w", tx.Seq, err)
	}
	return tx, nil
}

func (p *Publisher) Close() error { return p.w.Close() }

// MessageError reports a message whose value did not decode.
// The message is committed so it is not redelivered.
type MessageError struct {
	Partition int
	Offset    int64
	Err       error
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("kafka: message %d/%d: %v", e.Partition, e.Offset, e.Err)
}

func (e *MessageError) Unwrap() error { return e.Err }

// Received is one decoded message. Seq is 0 when the seq header is missing;
// SeqErr is set when the header is present but malformed.
type Received struct {
	ID        string
	Seq       uint64
	SeqErr    error
	Commands  []string
	Partition int
	Offset    int64
}

type Subscriber struct {
	r        Reader
	log      pitradio.Logger
	maxBytes int
}

// NewSubscriber decodes messages from r. maxBytes > 0 rejects larger values.
func NewSubscriber(r Reader, maxBytes int, log pitradio.Logger) *Subscriber {
	if log == nil {
		log = pitradio.NopLogger{}
	}
	return &Subscriber{r: r, log: log, maxBytes: maxBytes}
}

// Next blocks until a message arrives or ctx is done.
func (s *Subscriber) Next(ctx context.Context) (Received, error) {
	m, err := s.r.FetchMessage(ctx)
	if err != nil {
		return Received{}, err
	}

	dec := c.LimitCodec[[]string]{Inner: c.Frames{}, MaxDecode: s.maxBytes}
	cmds, decErr := dec.Decode(m.Value)
	if err := s.r.CommitMessages(ctx, m); err != nil {
		return Received{}, fmt.Errorf("kafka: commit %d/%d: %w", m.Partition, m.Offset, err)
	}
	if decErr != nil {
		s.log.Warn("dropping undecodable message", pitradio.Fields{
			"partition": m.Partition, "offset": m.Offset, "err": decErr,
		})
		return Received{}, &MessageError{Partition: m.Partition, Offset: m.Offset, Err: decErr}
	}

	out := Received{ID: string(m.Key), Commands: cmds, Partition: m.Partition, Offset: m.Offset}
	for _, h := range m.Headers {
		if h.Key != seqHeader {
			continue
		}
		seq, err := strconv.ParseUint(string(h.Value), 10, 64)
		if err != nil {
			out.SeqErr = fmt.Errorf("kafka: message %d/%d: bad seq header %q: %w", m.Partition, m.Offset, h.Value, err)
			s.log.Warn("malformed seq header", pitradio.Fields{
				"partition": m.Partition, "offset": m.Offset, "err": err,
			})
			continue
		}
		out.Seq = seq
	}
	return out, nil
}

func (s *Subscriber) Close() error { return s.r.Close() }
