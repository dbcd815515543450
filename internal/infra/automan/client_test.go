package automan

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(entity.AutomanInfo{Host: srv.URL, JWT: "token", Presigned: "/presigned/"}, srv.Client(), zap.NewNop())
	return client, srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetFrameCount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/projects/1/annotations/2/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "JWT token", r.Header.Get("Authorization"))
		writeJSON(w, map[string]any{"dataset_id": 7})
	})
	mux.HandleFunc("/projects/1/datasets/7/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"frame_count": 42})
	})
	client, _ := newTestClient(t, mux)

	n, err := client.GetFrameCount(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestGetFrameCountUpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non 2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "missing dataset id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]any{})
			},
		},
		{
			name: "missing frame count",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/projects/1/annotations/2/" {
					writeJSON(w, map[string]any{"dataset_id": 3})
					return
				}
				writeJSON(w, map[string]any{"name": "dataset"})
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)
			_, err := client.GetFrameCount(context.Background(), 1, 2)
			require.Error(t, err)
			assert.ErrorIs(t, err, entity.ErrUpstream)
		})
	}
}

func TestGetClassColors(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"klassset": map[string]any{
				"records": []map[string]any{
					{"name": "car", "config": `{"color": "#FF0000", "minSize": {"x": 1}}`},
					{"name": "pedestrian", "config": map[string]any{"color": "#00ff00"}},
					{"name": "sign", "config": `{"minSize": {"x": 1}}`},
				},
			},
		})
	}))

	colors, err := client.GetClassColors(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, entity.ClassColors{"car": "#FF0000", "pedestrian": "#00ff00"}, colors)
}

func TestGetClassColorsMissingKlassset(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"name": "project"})
	}))

	_, err := client.GetClassColors(context.Background(), 1)
	assert.ErrorIs(t, err, entity.ErrUpstream)
}

func TestGetCandidates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/1/originals/9/candidates/", r.URL.Path)
		writeJSON(w, map[string]any{
			"records": []map[string]any{
				{"candidate_id": 11, "data_type": "IMAGE"},
				{"candidate_id": 12, "data_type": "PCD"},
			},
		})
	}))

	candidates, err := client.GetCandidates(context.Background(), 1, 9)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, entity.Candidate{ID: 11, DataType: entity.DataTypeImage}, candidates[0])
	assert.Equal(t, ".jpg", candidates[0].Ext())
	assert.Equal(t, entity.Candidate{ID: 12, DataType: entity.DataTypePointCloud}, candidates[1])
	assert.Equal(t, ".pcd", candidates[1].Ext())
}

func TestGetAnnotationPreservesNumbers(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/1/annotations/2/frames/5/objects/", r.URL.Path)
		_, _ = w.Write([]byte(`{"count":1,"records":[{"name":"car","object_id":123,"instance_id":"abc",` +
			`"content":{"box":{"min_x_2d":10.50,"min_y_2d":1,"max_x_2d":20,"max_y_2d":30}}}]}`))
	}))

	set, err := client.GetAnnotation(context.Background(), 1, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Count)
	require.Len(t, set.Records, 1)
	assert.Equal(t, json.Number("123"), set.Records[0].ObjectID)

	out, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"min_x_2d":10.50`)
}

func TestGetAnnotationKeepsUnknownMembers(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":1,"frame":5,"records":[{"name":"car","object_id":1,"instance_id":"a",` +
			`"annotation_type":"BB2D","track_id":9,"content":{}}]}`))
	}))

	set, err := client.GetAnnotation(context.Background(), 1, 2, 5)
	require.NoError(t, err)
	assert.JSONEq(t, `5`, string(set.Extra["frame"]))
	require.Len(t, set.Records, 1)
	assert.JSONEq(t, `"BB2D"`, string(set.Records[0].Extra["annotation_type"]))
	assert.JSONEq(t, `9`, string(set.Records[0].Extra["track_id"]))
}

func TestGetAnnotationMissingCount(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"records": []any{}})
	}))

	_, err := client.GetAnnotation(context.Background(), 1, 2, 1)
	assert.ErrorIs(t, err, entity.ErrUpstream)
}

func TestGetFrameDetail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/1/datasets/3/candidates/4/frames/5/", r.URL.Path)
		writeJSON(w, map[string]any{
			"image_link": "http://images.example/4/5.jpg",
			"frame":      map[string]any{"secs": 1600000000, "nsecs": 250},
		})
	}))

	detail, err := client.GetFrameDetail(context.Background(), 1, 3, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, "http://images.example/4/5.jpg", detail.ImageLink)
	require.NotNil(t, detail.Frame)
	assert.Equal(t, entity.Timestamp{Secs: 1600000000, Nsecs: 250}, *detail.Frame)
}

func TestGetLocalizationTrack(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/projects/1/datasets/3/localization/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"file_link": srvURL + "/files/localization.json"})
	})
	mux.HandleFunc("/files/localization.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "JWT token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"x":1},{"x":2}]`))
	})
	client, srv := newTestClient(t, mux)
	srvURL = srv.URL

	track := client.GetLocalizationTrack(context.Background(), 1, 3)
	require.Len(t, track, 2)
	assert.JSONEq(t, `{"x":2}`, string(track.Pose(2)))
	assert.Nil(t, track.Pose(3))
}

func TestGetLocalizationTrackUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "endpoint missing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "empty link",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]any{"file_link": ""})
			},
		},
		{
			name: "malformed file",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/file" {
					_, _ = w.Write([]byte(`{"not": "a list"`))
					return
				}
				writeJSON(w, map[string]any{"file_link": "http://" + r.Host + "/file"})
			},
		},
		{
			name: "file download fails",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/file" {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				writeJSON(w, map[string]any{"file_link": "http://" + r.Host + "/file"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)
			assert.Nil(t, client.GetLocalizationTrack(context.Background(), 1, 3))
		})
	}
}

func TestDownloadImageCredentialsAreHostScoped(t *testing.T) {
	var serviceAuth, foreignAuth string
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serviceAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("service-bytes"))
	}))
	defer service.Close()
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("foreign-bytes"))
	}))
	defer foreign.Close()

	client := NewClient(entity.AutomanInfo{Host: service.URL, JWT: "secret"}, http.DefaultClient, zap.NewNop())

	body, err := client.DownloadImage(context.Background(), service.URL+"/img.jpg")
	require.NoError(t, err)
	assert.Equal(t, "service-bytes", string(body))
	assert.Equal(t, "JWT secret", serviceAuth)

	body, err = client.DownloadImage(context.Background(), foreign.URL+"/img.jpg")
	require.NoError(t, err)
	assert.Equal(t, "foreign-bytes", string(body))
	assert.Empty(t, foreignAuth)
}

func TestDownloadImageNon2xx(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))

	_, err := client.DownloadImage(context.Background(), srv.URL+"/img.jpg")
	assert.ErrorIs(t, err, entity.ErrTransientFetch)
}

func TestNotifyResult(t *testing.T) {
	var got entity.ArchiveResult
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/projects/1/annotations/2/archive/", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
	}))

	result := entity.ArchiveResult{FilePath: "/archives/", FileName: "a.tar.gz", AnnotationID: 2}
	require.NoError(t, client.NotifyResult(context.Background(), 1, result))
	assert.Equal(t, result, got)
}

func TestPresign(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/presigned/", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"storage_id": "5", "key": "out/a.tar.gz"}, body)
		writeJSON(w, map[string]any{"url": "http://bucket.example/put"})
	}))

	url, err := client.Presign(context.Background(), 5, "out/a.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, "http://bucket.example/put", url)
}

type recordingDoer struct {
	auth map[string]string
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	d.auth[req.URL.String()] = req.Header.Get("Authorization")
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("bytes")),
		Header:     make(http.Header),
	}, nil
}

func TestDownloadImageBareHostMatchesAnyScheme(t *testing.T) {
	doer := &recordingDoer{auth: map[string]string{}}
	client := NewClient(entity.AutomanInfo{Host: "automan.example", JWT: "secret"}, doer, zap.NewNop())

	for _, link := range []string{
		"https://automan.example/img.jpg",
		"http://automan.example:8080/img.jpg",
		"https://other.example/img.jpg",
	} {
		_, err := client.DownloadImage(context.Background(), link)
		require.NoError(t, err)
	}

	assert.Equal(t, "JWT secret", doer.auth["https://automan.example/img.jpg"])
	assert.Equal(t, "JWT secret", doer.auth["http://automan.example:8080/img.jpg"])
	assert.Empty(t, doer.auth["https://other.example/img.jpg"])
}
