package gtranslate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfspeak/pkg/request"
	"pdfspeak/pkg/tts"
)

type rpcCall struct {
	Text string
	Lang string
	Slow any
}

// fakeEndpoint answers batchexecute calls with the segment text as "audio".
func fakeEndpoint(t *testing.T, status int) (*httptest.Server, *[]rpcCall) {
	t.Helper()
	var mu sync.Mutex
	calls := &[]rpcCall{}
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != rpcPath {
			t.Errorf("path = %s, want %s", r.URL.Path, rpcPath)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
			return
		}
		var outer [][][]any
		if err := json.Unmarshal([]byte(r.PostForm.Get("f.req")), &outer); err != nil {
			t.Errorf("bad f.req: %v", err)
			return
		}
		var inner []any
		if err := json.Unmarshal([]byte(outer[0][0][1].(string)), &inner); err != nil {
			t.Errorf("bad inner payload: %v", err)
			return
		}
		call := rpcCall{Text: inner[0].(string), Lang: inner[1].(string), Slow: inner[2]}
		mu.Lock()
		*calls = append(*calls, call)
		mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		audio := base64.StdEncoding.EncodeToString([]byte("<" + call.Text + ">"))
		fmt.Fprintf(w, ")]}'\n\n123\n[[\"wrb.fr\",\"jQ1olc\",\"[\\\"%s\\\"]\",null,null,null,\"generic\"]]\n58\n[[\"di\",42]]\n", audio)
	}))
	return svr, calls
}

func newTestProvider(svr *httptest.Server, chunk int) *Provider {
	rc := request.New(nil, nil, request.Options{Timeout: 5 * time.Second, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
	return NewProvider(rc, "com", chunk, nil).WithBaseURL(svr.URL)
}

func TestSynthesize(t *testing.T) {
	svr, calls := fakeEndpoint(t, http.StatusOK)
	defer svr.Close()

	p := newTestProvider(svr, 12)
	out := filepath.Join(t.TempDir(), "doc.mp3")

	err := p.Synthesize(context.Background(), tts.Request{Text: "Hello world. Guten Tag.", Language: "en"}, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "<Hello world.><Guten Tag.>", string(data))

	require.Len(t, *calls, 2)
	assert.Equal(t, "en", (*calls)[0].Lang)
	assert.Nil(t, (*calls)[0].Slow, "normal speed sends null")
}

func TestSynthesize_SlowAndCanonicalLanguage(t *testing.T) {
	svr, calls := fakeEndpoint(t, http.StatusOK)
	defer svr.Close()

	p := newTestProvider(svr, 100)
	out := filepath.Join(t.TempDir(), "doc.mp3")

	err := p.Synthesize(context.Background(), tts.Request{Text: "ni hao", Language: "zh-cn", Slow: true}, out)
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	assert.Equal(t, "zh-CN", (*calls)[0].Lang)
	assert.Equal(t, true, (*calls)[0].Slow)
}

func TestSynthesize_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		lang      string
		wantFatal bool
	}{
		{"UnknownLanguage", http.StatusOK, "xx", true},
		{"BadRequest", http.StatusBadRequest, "en", true},
		{"ServerError", http.StatusInternalServerError, "en", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svr, _ := fakeEndpoint(t, tt.status)
			defer svr.Close()

			p := newTestProvider(svr, 100)
			err := p.Synthesize(context.Background(), tts.Request{Text: "hello", Language: tt.lang},
				filepath.Join(t.TempDir(), "doc.mp3"))
			require.Error(t, err)
			assert.Equal(t, tt.wantFatal, tts.IsFatalError(err), "err = %v", err)
		})
	}
}

func TestSynthesize_PunctuationOnly(t *testing.T) {
	svr, calls := fakeEndpoint(t, http.StatusOK)
	defer svr.Close()

	p := newTestProvider(svr, 100)
	err := p.Synthesize(context.Background(), tts.Request{Text: "...", Language: "en"},
		filepath.Join(t.TempDir(), "doc.mp3"))
	assert.ErrorIs(t, err, tts.ErrNoSpeakableText)
	assert.Empty(t, *calls)
}

func TestDecodeAudio(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		want    string
		wantErr bool
	}{
		{
			name: "SingleLine",
			resp: `[["wrb.fr","jQ1olc","[\"` + base64.StdEncoding.EncodeToString([]byte("mp3")) + `\"]",null]]`,
			want: "mp3",
		},
		{
			name:    "NoPayload",
			resp:    ")]}'\n[[\"di\",12]]",
			wantErr: true,
		},
		{
			name:    "BadBase64",
			resp:    `[["wrb.fr","jQ1olc","[\"!!!\"]",null]]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAudio([]byte(tt.resp))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestPackageRPC(t *testing.T) {
	body, err := packageRPC(`say "hi"`, "de", false)
	require.NoError(t, err)
	s := string(body)
	assert.True(t, strings.HasPrefix(s, "f.req="))
	assert.True(t, strings.HasSuffix(s, "&"))
	assert.Contains(t, s, rpcID)
}

func TestLanguages(t *testing.T) {
	p := NewProvider(nil, "", 0, nil)
	assert.Equal(t, Name, p.Name())
	assert.Equal(t, "https://translate.google.com", p.baseURL)

	langs, err := p.Languages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "English", langs["en"])
	assert.Equal(t, "German", langs["de"])
	assert.Equal(t, "Russian", langs["ru"])

	langs["en"] = "changed"
	again, _ := p.Languages(context.Background())
	assert.Equal(t, "English", again["en"])
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) GetCache(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memCache) SetCache(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = val
	return nil
}

func TestSynthesize_SegmentsCachedByClient(t *testing.T) {
	svr, calls := fakeEndpoint(t, http.StatusOK)
	defer svr.Close()

	mc := &memCache{data: make(map[string][]byte)}
	rc := request.New(mc, nil, request.Options{Timeout: 5 * time.Second, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
	p := NewProvider(rc, "com", 100, nil).WithBaseURL(svr.URL)

	dir := t.TempDir()
	req := tts.Request{Text: "Hello world.", Language: "en"}
	for _, name := range []string{"a.mp3", "b.mp3"} {
		require.NoError(t, p.Synthesize(context.Background(), req, filepath.Join(dir, name)))
	}

	assert.Len(t, *calls, 1)
	assert.Len(t, mc.data, 1)

	a, err := os.ReadFile(filepath.Join(dir, "a.mp3"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "b.mp3"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
