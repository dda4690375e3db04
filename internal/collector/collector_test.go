package collector

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"surebet/internal/config"
	"surebet/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.CollectorConfig {
	return config.CollectorConfig{Timeout: 2 * time.Second, UserAgent: "surebet-test", MaxElements: 10}
}

const oddsPage = `<html><body>
<div class="event">
  <span class="quota">2.10</span>
  <span class="quota"> Quota: 3.40 </span>
  <span class="quota">1.01</span>
  <span class="quota">sospesa</span>
  <span class="odds-value">55.00</span>
  <span class="odds-value">4.75</span>
</div>
</body></html>`

func TestParseQuote(t *testing.T) {
	q, ok := parseQuote("  1X2 @ 2.35 ")
	assert.True(t, ok)
	assert.Equal(t, 2.35, q)

	_, ok = parseQuote("2,35")
	assert.False(t, ok)

	_, ok = parseQuote("")
	assert.False(t, ok)
}

func TestExtractQuotes(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(oddsPage))
	require.NoError(t, err)

	t.Run("range filter and document order", func(t *testing.T) {
		assert.Equal(t, []float64{2.10, 3.40, 4.75}, extractQuotes(doc.Selection, ".quota, .odds-value", 10))
	})

	t.Run("element cap applies before filtering", func(t *testing.T) {
		assert.Equal(t, []float64{2.10, 3.40}, extractQuotes(doc.Selection, ".quota", 3))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, extractQuotes(doc.Selection, ".missing", 10))
	})
}

func TestPageCollector_Collect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/calcio":
			assert.Equal(t, "surebet-test", r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, oddsPage)
		case "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		default:
			http.Error(w, "blocked", http.StatusForbidden)
		}
	}))
	defer server.Close()

	collector := NewPageCollector(testLogger(), testConfig())

	t.Run("quotes extracted", func(t *testing.T) {
		batch := collector.Collect(context.Background(), model.Source{Name: "Eurobet", URL: server.URL + "/calcio", Selector: ".quota"})
		assert.Nil(t, batch.Err)
		assert.Equal(t, "Eurobet", batch.Source)
		assert.Equal(t, []float64{2.10, 3.40}, batch.Quotes)
		assert.False(t, batch.ObservedAt.IsZero())
		assert.True(t, batch.OK())
	})

	t.Run("http status is a collection failure", func(t *testing.T) {
		batch := collector.Collect(context.Background(), model.Source{Name: "Goldbet", URL: server.URL + "/blocked", Selector: ".quota"})
		require.NotNil(t, batch.Err)
		assert.ErrorIs(t, batch.Err, model.ErrCollection)
		assert.Equal(t, "Goldbet", batch.Err.Source)
		assert.Contains(t, batch.Err.Detail(), "403")
		assert.Empty(t, batch.Quotes)
		assert.False(t, batch.OK())
	})

	t.Run("timeout is a collection failure", func(t *testing.T) {
		cfg := testConfig()
		cfg.Timeout = 100 * time.Millisecond
		batch := NewPageCollector(testLogger(), cfg).Collect(context.Background(), model.Source{Name: "Slow", URL: server.URL + "/slow", Selector: ".quota"})
		require.NotNil(t, batch.Err)
		assert.Empty(t, batch.Quotes)
	})

	t.Run("unreachable host", func(t *testing.T) {
		batch := collector.Collect(context.Background(), model.Source{Name: "Gone", URL: "http://127.0.0.1:1/calcio", Selector: ".quota"})
		require.NotNil(t, batch.Err)
	})
}

var upgrader = websocket.Upgrader{}

func streamServer(t *testing.T, expectSubscribe string, frames []string, hold time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		if expectSubscribe != "" {
			_, msg, err := c.ReadMessage()
			if err != nil || string(msg) != expectSubscribe {
				return
			}
		}
		for _, frame := range frames {
			if err := c.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		time.Sleep(hold)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestStreamCollector_Collect(t *testing.T) {
	t.Run("frames until element cap", func(t *testing.T) {
		server := streamServer(t, `{"op":"subscribe"}`, []string{
			`{"price": 2.2}`,
			`not json`,
			`{"price": "3.10"}`,
			`[{"price": 1.0}, {"price": [4.5, 60]}]`,
			`{"other": 9.9}`,
		}, time.Second)
		defer server.Close()

		cfg := testConfig()
		cfg.MaxElements = 4
		batch := NewStreamCollector(testLogger(), cfg).Collect(context.Background(), model.Source{
			Name: "Feed", URL: wsURL(server), Selector: "price", Kind: model.SourceKindStream, Subscribe: `{"op":"subscribe"}`,
		})
		require.Nil(t, batch.Err)
		assert.Equal(t, []float64{2.2, 3.10, 4.5}, batch.Quotes)
	})

	t.Run("timeout keeps quotes already read", func(t *testing.T) {
		server := streamServer(t, "", []string{`{"price": 2.6}`}, time.Second)
		defer server.Close()

		cfg := testConfig()
		cfg.Timeout = 200 * time.Millisecond
		batch := NewStreamCollector(testLogger(), cfg).Collect(context.Background(), model.Source{
			Name: "Feed", URL: wsURL(server), Selector: "price", Kind: model.SourceKindStream,
		})
		require.Nil(t, batch.Err)
		assert.Equal(t, []float64{2.6}, batch.Quotes)
	})

	t.Run("timeout without quotes fails", func(t *testing.T) {
		server := streamServer(t, "", nil, time.Second)
		defer server.Close()

		cfg := testConfig()
		cfg.Timeout = 200 * time.Millisecond
		batch := NewStreamCollector(testLogger(), cfg).Collect(context.Background(), model.Source{
			Name: "Quiet", URL: wsURL(server), Selector: "price", Kind: model.SourceKindStream,
		})
		require.NotNil(t, batch.Err)
		assert.ErrorIs(t, batch.Err, model.ErrCollection)
	})

	t.Run("dial failure", func(t *testing.T) {
		batch := NewStreamCollector(testLogger(), testConfig()).Collect(context.Background(), model.Source{
			Name: "Down", URL: "ws://127.0.0.1:1/feed", Selector: "price", Kind: model.SourceKindStream,
		})
		require.NotNil(t, batch.Err)
	})
}

type panicCollector struct{}

func (panicCollector) Kind() model.SourceKind { return model.SourceKindPage }

func (panicCollector) Collect(context.Context, model.Source) model.QuoteBatch {
	panic("selector engine exploded")
}

func TestDispatcher(t *testing.T) {
	d := NewDispatcher(testLogger(), testConfig())

	t.Run("unknown kind", func(t *testing.T) {
		batch := d.Collect(context.Background(), model.Source{Name: "X", Kind: "carrier-pigeon"})
		require.NotNil(t, batch.Err)
		assert.Contains(t, batch.Err.Detail(), "unknown source kind")
	})

	t.Run("panic becomes failed batch", func(t *testing.T) {
		d.Register(panicCollector{})
		batch := d.Collect(context.Background(), model.Source{Name: "Boom"})
		require.NotNil(t, batch.Err)
		assert.Equal(t, "Boom", batch.Source)
		assert.Contains(t, batch.Err.Detail(), "selector engine exploded")
	})
}

func TestNewCollector(t *testing.T) {
	c, err := NewCollector(model.SourceKindStream, testLogger(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, model.SourceKindStream, c.Kind())

	_, err = NewCollector("ftp", testLogger(), testConfig())
	assert.Error(t, err)
}
