package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-planner-api/pkg/config"
)

func nextEvent(t *testing.T, events <-chan LiveEvent) LiveEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live event")
		return LiveEvent{}
	}
}

func TestOpenLiveExchangesSetupAudioAndInterrupts(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan liveRealtimeInput, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "live-key", r.URL.Query().Get("key"))
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var setup liveSetup
		require.NoError(t, conn.ReadJSON(&setup))
		assert.Equal(t, "models/live-model", setup.Setup.Model)
		assert.Equal(t, []string{"AUDIO"}, setup.Setup.GenerationConfig.ResponseModalities)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"setupComplete":{}}`)))

		var input liveRealtimeInput
		require.NoError(t, conn.ReadJSON(&input))
		received <- input

		audioMsg, _ := json.Marshal(map[string]any{
			"serverContent": map[string]any{
				"modelTurn": map[string]any{"parts": []map[string]any{{
					"inlineData": map[string]any{
						"mimeType": "audio/pcm;rate=24000",
						"data":     base64.StdEncoding.EncodeToString([]byte{9, 9}),
					},
				}}},
			},
		})
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, audioMsg))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"serverContent":{"interrupted":true}}`)))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(config.GeminiConfig{
		APIKey:    "live-key",
		LiveModel: "live-model",
		LiveURL:   "ws" + strings.TrimPrefix(srv.URL, "http"),
	}, nil)

	session, err := client.OpenLive(context.Background(), LiveConfig{InputSampleRate: 16000, OutputSampleRate: 24000})
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, EventOpen, nextEvent(t, session.Events()).Type)

	require.NoError(t, session.SendAudio(context.Background(), []byte{1, 2, 3, 4}))
	input := <-received
	require.Len(t, input.RealtimeInput.MediaChunks, 1)
	assert.Equal(t, "audio/pcm;rate=16000", input.RealtimeInput.MediaChunks[0].MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4}), input.RealtimeInput.MediaChunks[0].Data)

	ev := nextEvent(t, session.Events())
	assert.Equal(t, EventAudio, ev.Type)
	assert.Equal(t, []byte{9, 9}, ev.Audio)
	assert.Equal(t, 24000, ev.SampleRate)

	assert.Equal(t, EventInterrupted, nextEvent(t, session.Events()).Type)

	closed := nextEvent(t, session.Events())
	assert.Equal(t, EventClosed, closed.Type)
	assert.NoError(t, closed.Err)
}

func TestOpenLiveDialFailure(t *testing.T) {
	client := NewClient(config.GeminiConfig{LiveURL: "ws://127.0.0.1:1/live"}, nil)
	_, err := client.OpenLive(context.Background(), LiveConfig{InputSampleRate: 16000})
	assert.Error(t, err)
}
