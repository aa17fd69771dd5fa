package eventbridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"watchlist-backend/domain/core/valueobjects"
	"watchlist-backend/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/smithy-go"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	calls    []*eventbridge.PutEventsInput
	failures []error
}

func (f *fakeClient) PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, in)
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		if err != nil {
			return nil, err
		}
	}
	return &eventbridge.PutEventsOutput{Entries: make([]types.PutEventsResultEntry, len(in.Entries))}, nil
}

func newTestPublisher(client API) *Publisher {
	p := NewPublisher(client, "watchlist-bus", zap.NewNop())
	p.backoff = time.Millisecond
	return p
}

func itemAdded(movieID int64) events.DomainEvent {
	key := valueobjects.WatchlistItemKey{UserID: 7, MovieID: valueobjects.MovieID(movieID)}
	return events.NewItemAdded(key, valueobjects.StatusPlanned, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestPublisher_SplitsIntoBatchesOfTen(t *testing.T) {
	// Arrange
	client := &fakeClient{}
	publisher := newTestPublisher(client)
	evs := make([]events.DomainEvent, 23)
	for i := range evs {
		evs[i] = itemAdded(int64(i + 1))
	}

	// Act
	err := publisher.PublishBatch(context.Background(), evs)

	// Assert
	require.NoError(t, err)
	require.Len(t, client.calls, 3)
	assert.Len(t, client.calls[0].Entries, 10)
	assert.Len(t, client.calls[1].Entries, 10)
	assert.Len(t, client.calls[2].Entries, 3)
}

func TestPublisher_EntryCarriesEvent(t *testing.T) {
	client := &fakeClient{}
	publisher := newTestPublisher(client)
	event := itemAdded(550)

	require.NoError(t, publisher.PublishBatch(context.Background(), []events.DomainEvent{event}))

	entry := client.calls[0].Entries[0]
	assert.Equal(t, "watchlist-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, events.SourceBackend, aws.ToString(entry.Source))
	assert.Equal(t, events.TypeItemAdded, aws.ToString(entry.DetailType))

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, event.EventID(), detail["event_id"])
}

func TestPublisher_RetriesServerFaults(t *testing.T) {
	client := &fakeClient{failures: []error{
		&smithy.GenericAPIError{Code: "InternalException", Fault: smithy.FaultServer},
		nil,
	}}
	publisher := newTestPublisher(client)

	err := publisher.PublishBatch(context.Background(), []events.DomainEvent{itemAdded(1)})

	require.NoError(t, err)
	assert.Len(t, client.calls, 2)
}

func TestPublisher_DoesNotRetryClientFaults(t *testing.T) {
	client := &fakeClient{failures: []error{
		&smithy.GenericAPIError{Code: "AccessDeniedException", Fault: smithy.FaultClient},
	}}
	publisher := newTestPublisher(client)

	err := publisher.PublishBatch(context.Background(), []events.DomainEvent{itemAdded(1)})

	require.Error(t, err)
	assert.Len(t, client.calls, 1)
}

func TestPublisher_GivesUpAfterMaxRetries(t *testing.T) {
	transient := &smithy.GenericAPIError{Code: "ThrottlingException", Fault: smithy.FaultClient}
	client := &fakeClient{failures: []error{transient, transient, transient, transient}}
	publisher := newTestPublisher(client)

	err := publisher.PublishBatch(context.Background(), []events.DomainEvent{itemAdded(1)})

	require.Error(t, err)
	assert.Len(t, client.calls, 3)
	var ae smithy.APIError
	assert.True(t, errors.As(err, &ae))
}

func TestPublisher_EmptyBatchIsNoop(t *testing.T) {
	client := &fakeClient{}

	require.NoError(t, newTestPublisher(client).PublishBatch(context.Background(), nil))
	assert.Empty(t, client.calls)
}
