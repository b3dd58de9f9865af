package upstream

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/ab-compare/internal/classifier"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClassifySendsMultipartImage(t *testing.T) {
	payload := []byte("\x89PNG fake image bytes")

	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()

		assert.Equal(t, "image.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		got, _ := io.ReadAll(file)
		assert.Equal(t, payload, got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions":[{"breed_en":"Poodle","breed_ko":"푸들","class_id":7,"score":0.92},{"breed_en":"Pug","breed_ko":"퍼그","class_id":3,"score":0.05}]}`))
	})

	client := NewHTTPClient(time.Second, zap.NewNop())
	res := client.Classify(context.Background(), srv.URL, payload, classifier.ModelA)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, classifier.ModelA, res.Model)
	assert.Empty(t, res.Error)
	require.Len(t, res.Predictions, 2)
	assert.Equal(t, classifier.Prediction{BreedEN: "Poodle", BreedKO: "푸들", ClassID: 7, Score: 0.92}, res.Predictions[0])
	assert.GreaterOrEqual(t, res.ResponseTime, 0.0)
}

func TestClassifyNonSuccessStatus(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	res := NewHTTPClient(time.Second, zap.NewNop()).Classify(context.Background(), srv.URL, []byte("img"), classifier.ModelA)

	assert.False(t, res.Success)
	assert.Equal(t, "HTTP 500", res.Error)
	assert.NotNil(t, res.Predictions)
	assert.Empty(t, res.Predictions)
}

func TestClassifyMissingPredictionsIsEmptySuccess(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"resnet"}`))
	})

	res := NewHTTPClient(time.Second, zap.NewNop()).Classify(context.Background(), srv.URL, []byte("img"), classifier.ModelB)

	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.NotNil(t, res.Predictions)
	assert.Empty(t, res.Predictions)
}

func TestClassifyMalformedBody(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	res := NewHTTPClient(time.Second, zap.NewNop()).Classify(context.Background(), srv.URL, []byte("img"), classifier.ModelB)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "JSON parse error")
	assert.Empty(t, res.Predictions)
}

func TestClassifyTransportError(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	res := NewHTTPClient(time.Second, zap.NewNop()).Classify(context.Background(), "http://"+addr+"/predict", []byte("img"), classifier.ModelA)

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, res.Predictions)
	assert.GreaterOrEqual(t, res.ResponseTime, 0.0)
}

func TestClassifyTimeoutIsReportedAsData(t *testing.T) {
	release := make(chan struct{})
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	res := NewHTTPClient(50*time.Millisecond, zap.NewNop()).Classify(context.Background(), srv.URL, []byte("img"), classifier.ModelA)

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.GreaterOrEqual(t, res.ResponseTime, 0.05)
}

func TestClassifyRoundsResponseTime(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"predictions":[]}`))
	})

	client := NewHTTPClient(time.Second, zap.NewNop())
	base := time.Unix(0, 0)
	calls := 0
	client.now = func() time.Time {
		calls++
		if calls == 1 {
			return base
		}
		return base.Add(1234567 * time.Microsecond)
	}

	res := client.Classify(context.Background(), srv.URL, []byte("img"), classifier.ModelA)
	assert.True(t, res.Success)
	assert.Equal(t, 1.235, res.ResponseTime)
}

func TestClassifyRejectsUnexpectedBodies(t *testing.T) {
	bodies := map[string]string{
		"predictions not a list": `{"predictions":"x"}`,
		"prediction wrong types": `{"predictions":[{"breed_en":1,"score":"high"}]}`,
		"negative class id":      `{"predictions":[{"breed_en":"Pug","breed_ko":"퍼그","class_id":-1,"score":0.5}]}`,
		"trailing garbage":       `{"predictions":[]}garbage`,
		"top level array":        `[]`,
		"empty body":             ``,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			res := NewHTTPClient(time.Second, zap.NewNop()).Classify(context.Background(), srv.URL, []byte("img"), classifier.ModelA)

			assert.False(t, res.Success)
			assert.Contains(t, res.Error, "JSON parse error")
			assert.NotNil(t, res.Predictions)
			assert.Empty(t, res.Predictions)
		})
	}
}

func TestClassifyNullPredictionsIsEmptySuccess(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"predictions":null}`))
	})

	res := NewHTTPClient(time.Second, zap.NewNop()).Classify(context.Background(), srv.URL, []byte("img"), classifier.ModelB)

	assert.True(t, res.Success)
	assert.Equal(t, []classifier.Prediction{}, res.Predictions)
}
