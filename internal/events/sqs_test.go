package events

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	QueueUrl    string
	MessageBody string
}

func newTestPublisher(t *testing.T, status int) (*SQSPublisher, chan sentMessage) {
	t.Helper()
	sent := make(chan sentMessage, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/x-amz-json-1.0")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"__type":"com.amazonaws.sqs#QueueDoesNotExist","message":"no queue"}`)
			return
		}
		var msg sentMessage
		_ = json.Unmarshal(body, &msg)
		sent <- msg
		sum := md5.Sum([]byte(msg.MessageBody))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"MessageId":        "5fea7756-0ea4-451a-a703-a558b933e274",
			"MD5OfMessageBody": hex.EncodeToString(sum[:]),
		})
	}))
	t.Cleanup(srv.Close)

	client := sqs.New(sqs.Options{
		Region:           "us-east-1",
		Credentials:      credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
		BaseEndpoint:     aws.String(srv.URL),
		RetryMaxAttempts: 1,
	})
	return NewSQSPublisherFromClient(client, srv.URL+"/000000000000/ingested"), sent
}

func TestSQSPublisher_PublishIngested(t *testing.T) {
	pub, sent := newTestPublisher(t, http.StatusOK)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := pub.PublishIngested(context.Background(), VideoIngested{
		VideoID:    "550e8400-e29b-41d4-a716-446655440000",
		UserID:     "11111111-1111-4111-8111-111111111111",
		StorageKey: "landscape/550e8400-e29b-41d4-a716-446655440000.mp4",
		Aspect:     "landscape",
		At:         at,
	})
	require.NoError(t, err)

	msg := <-sent
	assert.Contains(t, msg.QueueUrl, "/000000000000/ingested")

	var ev VideoIngested
	require.NoError(t, json.Unmarshal([]byte(msg.MessageBody), &ev))
	assert.Equal(t, TypeVideoIngested, ev.Type)
	assert.Equal(t, "landscape", ev.Aspect)
	assert.Equal(t, "landscape/550e8400-e29b-41d4-a716-446655440000.mp4", ev.StorageKey)
	assert.True(t, at.Equal(ev.At))
}

func TestSQSPublisher_Failure(t *testing.T) {
	pub, _ := newTestPublisher(t, http.StatusBadRequest)
	err := pub.PublishIngested(context.Background(), VideoIngested{VideoID: "x"})
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.PublishIngested(context.Background(), VideoIngested{}))
}
