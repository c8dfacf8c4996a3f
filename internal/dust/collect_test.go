package dust

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectResponseJoinsFragments(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"events":[
			{"type":"generation-tokens","contentBlock":{"content":"Hello"}},
			{"type":"generation-tokens","contentBlock":{"content":" world"}},
			{"type":"generation-complete"}
		]}`)
	}))

	text, err := c.CollectResponse(context.Background(), "conv_1", "msg_2")
	require.NoError(t, err)
	require.Equal(t, "Hello\n world", text)
}

func TestCollectResponseWaitsForCompletion(t *testing.T) {
	// The platform replays the full event history on every poll; the final
	// answer must come from the attempt that carried the completion marker.
	var requests atomic.Int64
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) == 1 {
			fmt.Fprint(w, `{"events":[{"contentBlock":{"content":"Hel"}}]}`)
			return
		}
		fmt.Fprint(w, `{"events":[
			{"contentBlock":{"content":"Hello"}},
			{"type":"generation-complete"}
		]}`)
	}))

	text, err := c.CollectResponse(context.Background(), "conv_1", "msg_2")
	require.NoError(t, err)
	require.Equal(t, "Hello", text)
	require.EqualValues(t, 2, requests.Load())
}

func TestCollectResponseTimeout(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"events":[{"contentBlock":{"content":"partial"}}]}`)
	}))

	_, err := c.CollectResponse(context.Background(), "conv_1", "msg_2")
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, StageCollectResponse, stageErr.Stage)
	require.Contains(t, stageErr.Reason, "3 attempts")
}

func TestCollectResponseRetriesTransportErrors(t *testing.T) {
	var requests atomic.Int64
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"events":[
			{"contentBlock":{"content":"Hi"}},
			{"type":"generation-complete"}
		]}`)
	}))

	text, err := c.CollectResponse(context.Background(), "conv_1", "msg_2")
	require.NoError(t, err)
	require.Equal(t, "Hi", text)
}

func TestCollectResponseShapeErrorIsFatal(t *testing.T) {
	var requests atomic.Int64
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, `{"unexpected":true}`)
	}))

	_, err := c.CollectResponse(context.Background(), "conv_1", "msg_2")
	require.Error(t, err)
	require.EqualValues(t, 1, requests.Load(), "a shape mismatch must not be retried")
	require.Contains(t, err.Error(), "no events field")
}

func TestFoldEvents(t *testing.T) {
	t.Run("fragments without completion", func(t *testing.T) {
		fragments, completed := foldEvents([]Event{
			{ContentBlock: &struct {
				Content string `json:"content"`
			}{Content: "a"}},
		})
		require.Equal(t, []string{"a"}, fragments)
		require.False(t, completed)
	})

	t.Run("completion without fragments", func(t *testing.T) {
		fragments, completed := foldEvents([]Event{{Type: "generation-complete"}})
		require.Empty(t, fragments)
		require.True(t, completed)
	})

	t.Run("unrelated events are ignored", func(t *testing.T) {
		fragments, completed := foldEvents([]Event{{Type: "retrieval_params"}})
		require.Empty(t, fragments)
		require.False(t, completed)
	})
}
