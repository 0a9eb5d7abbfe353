package kafka

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustside/listing-sentinel/internal/config"
	"github.com/trustside/listing-sentinel/internal/domain/listing"
	"github.com/trustside/listing-sentinel/pkg/errors"
)

type mockReader struct {
	messages  []kafka.Message
	pos       int
	committed []kafka.Message
	closed    bool
}

func (m *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if m.pos >= len(m.messages) {
		// Simulate shutdown once the scripted messages run out.
		return kafka.Message{}, io.EOF
	}
	msg := m.messages[m.pos]
	m.pos++
	return msg, nil
}

func (m *mockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	m.committed = append(m.committed, msgs...)
	return nil
}

func (m *mockReader) Close() error {
	m.closed = true
	return nil
}

type mockImporter struct {
	importFn func(ctx context.Context, l *listing.Listing) (*listing.Listing, error)
	imported []*listing.Listing
}

func (m *mockImporter) ImportReference(ctx context.Context, l *listing.Listing) (*listing.Listing, error) {
	if m.importFn != nil {
		return m.importFn(ctx, l)
	}
	m.imported = append(m.imported, l)
	return l, nil
}

func msg(offset int64, body string) kafka.Message {
	return kafka.Message{Offset: offset, Value: []byte(body)}
}

func TestNewConsumer_ValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := NewConsumer(config.KafkaConfig{Topic: "reference-listings"}, &mockImporter{}, nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = NewConsumer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, &mockImporter{}, nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = NewConsumerWithReader(&mockReader{}, nil, nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestRun_ImportsAndCommits(t *testing.T) {
	t.Parallel()

	reader := &mockReader{messages: []kafka.Message{
		msg(0, `{"title": "Apple iPhone 15 Pro Max", "brand": "Apple", "price": 1199}`),
		msg(1, `{"id": "lst-custom", "title": "Samsung Galaxy S24", "brand": "Samsung"}`),
	}}
	importer := &mockImporter{}
	c, err := NewConsumerWithReader(reader, importer, nil)
	require.NoError(t, err)

	err = c.Run(context.Background())
	assert.Error(t, err) // scripted EOF after the messages drain

	require.Len(t, importer.imported, 2)
	assert.Equal(t, "Apple iPhone 15 Pro Max", importer.imported[0].Title)
	require.NotNil(t, importer.imported[0].Price)
	assert.Equal(t, 1199.0, *importer.imported[0].Price)
	assert.Equal(t, "lst-custom", importer.imported[1].ID)

	assert.Len(t, reader.committed, 2)
	assert.True(t, reader.closed)
	assert.Equal(t, int64(2), c.Stats().Imported.Load())
}

func TestRun_SkipsMalformedMessages(t *testing.T) {
	t.Parallel()

	reader := &mockReader{messages: []kafka.Message{
		msg(0, `{not json`),
		msg(1, `{"title": "Apple iPhone 15"}`),
	}}
	importer := &mockImporter{}
	c, err := NewConsumerWithReader(reader, importer, nil)
	require.NoError(t, err)

	_ = c.Run(context.Background())

	assert.Len(t, importer.imported, 1)
	// the malformed message is still committed so it is not redelivered
	assert.Len(t, reader.committed, 2)
	assert.Equal(t, int64(1), c.Stats().Skipped.Load())
}

func TestRun_SkipsRejectedListings(t *testing.T) {
	t.Parallel()

	reader := &mockReader{messages: []kafka.Message{
		msg(0, `{"title": ""}`),
	}}
	importer := &mockImporter{
		importFn: func(_ context.Context, l *listing.Listing) (*listing.Listing, error) {
			return nil, errors.InvalidInput("title is required")
		},
	}
	c, err := NewConsumerWithReader(reader, importer, nil)
	require.NoError(t, err)

	_ = c.Run(context.Background())
	assert.Equal(t, int64(1), c.Stats().Skipped.Load())
	assert.Len(t, reader.committed, 1)
}

func TestRun_EmbeddingOutageRetriesSameMessageBeforeAdvancing(t *testing.T) {
	t.Parallel()

	reader := &mockReader{messages: []kafka.Message{
		msg(0, `{"title": "Apple iPhone 15"}`),
		msg(1, `{"title": "Samsung Galaxy S24"}`),
	}}
	// The provider is down for the first two attempts, then recovers.  The
	// first message must be imported and committed before the consumer moves
	// on, or committing the second message would advance the group position
	// past the lost one.
	var attempts int
	importer := &mockImporter{}
	importer.importFn = func(_ context.Context, l *listing.Listing) (*listing.Listing, error) {
		attempts++
		if attempts <= 2 {
			return nil, errors.EmbeddingUnavailable(fmt.Errorf("connection refused"))
		}
		importer.imported = append(importer.imported, l)
		return l, nil
	}
	c, err := NewConsumerWithReader(reader, importer, nil)
	require.NoError(t, err)
	c.backoff = time.Millisecond

	_ = c.Run(context.Background())

	require.Len(t, importer.imported, 2)
	assert.Equal(t, "Apple iPhone 15", importer.imported[0].Title)
	require.Len(t, reader.committed, 2)
	assert.Equal(t, int64(0), reader.committed[0].Offset)
	assert.Equal(t, int64(1), reader.committed[1].Offset)
	assert.Equal(t, int64(2), c.Stats().Imported.Load())
	assert.Equal(t, int64(0), c.Stats().Skipped.Load())
}

func TestRun_CancelDuringOutageLeavesMessageUncommitted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	reader := &mockReader{messages: []kafka.Message{
		msg(0, `{"title": "Apple iPhone 15"}`),
	}}
	importer := &mockImporter{
		importFn: func(context.Context, *listing.Listing) (*listing.Listing, error) {
			cancel()
			return nil, errors.EmbeddingUnavailable(fmt.Errorf("connection refused"))
		},
	}
	c, err := NewConsumerWithReader(reader, importer, nil)
	require.NoError(t, err)
	c.backoff = time.Minute

	assert.NoError(t, c.Run(ctx))
	assert.Empty(t, reader.committed)
	assert.Equal(t, int64(0), c.Stats().Imported.Load())
	assert.True(t, reader.closed)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &mockReader{}
	c, err := NewConsumerWithReader(reader, &mockImporter{}, nil)
	require.NoError(t, err)

	// FetchMessage returns EOF but the context is already cancelled, so Run
	// reports a clean shutdown.
	assert.NoError(t, c.Run(ctx))
	assert.True(t, reader.closed)
}
